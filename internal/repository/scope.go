package repository

import "gorm.io/gorm"

// AnyOwner 管理员查询时使用，不限制试卷所属教师
const AnyOwner uint = 0

// ownedBy 限定为某位教师的试卷；column 为教师ID列名
func ownedBy(column string, teacherID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if teacherID == AnyOwner {
			return db
		}
		return db.Where(column+" = ?", teacherID)
	}
}
