package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "sbcntr-court"

// JWTVerifier は HS256 で署名されたトークンを発行・検証します
type JWTVerifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTVerifier(secret string, ttl time.Duration) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is not set")
	}
	return &JWTVerifier{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue はユーザーIDを subject にしたトークンを発行します
func (v *JWTVerifier) Issue(userID string) (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("invalid token: missing subject")
	}
	return claims.Subject, nil
}
