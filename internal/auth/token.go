// Package auth はアクセストークン(HS256)の発行と検証を行う。
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// トークンの中身。subはユーザーID(文字列)
type Claims struct {
	Role         string `json:"role"`
	TokenVersion int    `json:"tv"`
	jwt.RegisteredClaims
}

// 検証済みトークンから取り出した値
type Principal struct {
	UserID       int64
	Role         string
	TokenVersion int
}

func IssueAccessToken(secret string, userID int64, role string, tokenVersion int, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	if userID <= 0 || role == "" {
		return "", errors.New("invalid principal")
	}

	claims := Claims{
		Role:         role,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseAccessToken(secret, raw string) (Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Principal{}, ErrInvalidToken
	}
	if claims.Role == "" || claims.TokenVersion < 0 {
		return Principal{}, ErrInvalidToken
	}
	// 期限なしのトークンは受け付けない
	if claims.ExpiresAt == nil {
		return Principal{}, ErrInvalidToken
	}

	return Principal{UserID: userID, Role: claims.Role, TokenVersion: claims.TokenVersion}, nil
}
