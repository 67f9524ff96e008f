package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid 令牌无效
var ErrTokenInvalid = errors.New("token invalid")

// UserClaims 用户身份令牌声明
type UserClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateUserToken 签发用户身份令牌（HS256）
func GenerateUserToken(secretKey string, userID uint, expireHours int) (string, error) {
	if secretKey == "" {
		return "", ErrTokenInvalid
	}
	if expireHours <= 0 {
		expireHours = 24
	}
	now := time.Now()
	claims := UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

// ParseUserToken 解析用户身份令牌
func ParseUserToken(secretKey, tokenString string) (*UserClaims, error) {
	if secretKey == "" || tokenString == "" {
		return nil, ErrTokenInvalid
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
