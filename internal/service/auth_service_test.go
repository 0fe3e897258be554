package service

import (
	"context"
	"errors"
	"testing"

	"quizgen_backend/internal/model"
	"quizgen_backend/internal/repository"
	"quizgen_backend/internal/util"
)

func TestAuthRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), newTestConfig(t))
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Name: "T", Email: "t@example.com", Password: "secret1", PasswordConfirm: "secret2"}); !errors.Is(err, util.ErrPasswordMismatch) {
		t.Fatalf("mismatch err = %v", err)
	}

	user, err := svc.Register(ctx, RegisterInput{Name: "T", Email: " T@Example.com ", Password: "secret1", PasswordConfirm: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "t@example.com" || user.Role != model.Teacher || user.Password == "secret1" {
		t.Fatalf("user = %+v", user)
	}

	if _, err := svc.Register(ctx, RegisterInput{Name: "T", Email: "t@example.com", Password: "x", PasswordConfirm: "x"}); !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("duplicate err = %v", err)
	}

	token, logged, err := svc.Login(ctx, "t@example.com", "secret1")
	if err != nil || token == "" || logged.ID != user.ID {
		t.Fatalf("login = %q, %+v, %v", token, logged, err)
	}
	claims, err := util.ParseJWT(token, testSecret)
	if err != nil || claims.UserID != user.ID {
		t.Fatalf("claims = %+v, %v", claims, err)
	}

	if _, _, err := svc.Login(ctx, "t@example.com", "wrong"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "secret1"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v", err)
	}

	if _, err := svc.Profile(ctx, 999); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("profile err = %v", err)
	}
}
