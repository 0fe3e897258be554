package util

import (
	"errors"
	"quizgen_backend/internal/model"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID uint           `json:"user_id"`
	Role   model.UserRole `json:"role"`
	Email  string         `json:"email"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == model.Admin
}

func GenerateJWT(user *model.User, secret string, expiration time.Duration) (string, error) {
	expirationTime := time.Now().Add(expiration)

	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	// 作答凭证不能当作登录令牌
	if claims.Subject == AttemptTicketSubject {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AttemptClaims 作答凭证。记录本次发给学生的题目，提交时只按这些题判分。
type AttemptClaims struct {
	TestID      uint   `json:"test_id"`
	QuestionIDs []uint `json:"question_ids"`
	jwt.RegisteredClaims
}

// AttemptTicketSubject 区分作答凭证和登录令牌
const AttemptTicketSubject = "attempt"

func GenerateAttemptTicket(ticketID string, testID uint, questionIDs []uint, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &AttemptClaims{
		TestID:      testID,
		QuestionIDs: questionIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ticketID,
			Subject:   AttemptTicketSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseAttemptTicket(tokenString, secret string) (*AttemptClaims, error) {
	claims := &AttemptClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(AttemptTicketSubject),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidTicket
	}
	if claims.ID == "" {
		return nil, ErrInvalidTicket
	}
	return claims, nil
}

func GetUserFromContext(c *gin.Context) *Claims {
	user, exists := c.Get("user")
	if !exists {
		return nil
	}
	claims, ok := user.(*Claims)
	if !ok {
		return nil
	}
	return claims
}
