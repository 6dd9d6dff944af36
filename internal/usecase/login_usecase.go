package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/auth"
	repo "storefront/internal/repository"
)

// メールまたはパスワードが違う
var ErrInvalidCredentials = errors.New("invalid credentials")

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

type LoginInput struct {
	Email    string
	Password string
}

type AccessToken struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type LoginUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginOutput struct {
	User  LoginUser   `json:"user"`
	Token AccessToken `json:"token"`
}

// LoginUsecase はメール+パスワードでアクセストークンを発行する（リフレッシュは持たない）
type LoginUsecase struct {
	users    repo.UserRepository
	verifier PasswordVerifier
	secret   string
	ttl      time.Duration
	now      func() time.Time
}

func NewLoginUsecase(users repo.UserRepository, verifier PasswordVerifier, secret string, ttl time.Duration) *LoginUsecase {
	return &LoginUsecase{users: users, verifier: verifier, secret: secret, ttl: ttl, now: time.Now}
}

func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return LoginOutput{}, invalidArgument("email and password are required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return LoginOutput{}, ErrInvalidCredentials
		}
		return LoginOutput{}, dbError("find user", err)
	}

	//停止ユーザーも同じエラーにする
	if !user.IsActive || !u.verifier.Verify(in.Password, user.PasswordHash) {
		return LoginOutput{}, ErrInvalidCredentials
	}

	token, err := auth.IssueAccessToken(u.secret, user.ID, string(user.Role), user.TokenVersion, u.ttl, u.now())
	if err != nil {
		return LoginOutput{}, err
	}

	return LoginOutput{
		User: LoginUser{ID: user.ID, Email: user.Email, Role: string(user.Role)},
		Token: AccessToken{
			AccessToken:  token,
			ExpiresIn:    int(u.ttl.Seconds()),
			TokenVersion: user.TokenVersion,
		},
	}, nil
}
