package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims API 访问令牌声明
// 身份由外部账号体系签发，这里只约定载荷结构。
type TokenClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken 签发 HS256 访问令牌，供本地联调与测试使用
func IssueToken(secretKey string, expire time.Duration, userID uint, role string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}
