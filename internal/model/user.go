package model

type UserRole string

const (
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// swagger:model User
// 只有教师和管理员有账号，学生匿名作答
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'teacher'" json:"role"`
}

func (User) TableName() string {
	return "users"
}
