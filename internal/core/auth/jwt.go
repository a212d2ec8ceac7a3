package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose 区分验证邮件里的 token 与登录会话 token
const (
	PurposeVerify  = "verify"
	PurposeSession = "session"
)

var ErrWrongToken = errors.New("token kind or purpose mismatch")

type Claims struct {
	Email   string `json:"email"`
	Kind    string `json:"kind"` // "user" or "admin"
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret []byte
	Issuer string
}

func NewJWTer(secret, issuer string) *JWTer {
	return &JWTer{Secret: []byte(secret), Issuer: issuer}
}

func (j *JWTer) Issue(email, kind, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:   email,
		Kind:    kind,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(60*time.Second), jwt.WithExpirationRequired())

	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		if c.Email == "" {
			return nil, errors.New("token without email")
		}
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// ParseFor parses the token and requires the given kind and purpose.
func (j *JWTer) ParseFor(tokenStr, kind, purpose string) (*Claims, error) {
	c, err := j.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if c.Kind != kind || c.Purpose != purpose {
		return nil, ErrWrongToken
	}
	return c, nil
}
