package main

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// tokenClaims is the identity carried by a bearer token.
type tokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// auth hashes passwords and signs tokens. It holds only read-only configuration, so a single
// value is shared by every request.
type auth struct {
	secret     []byte
	ttl        time.Duration
	bcryptCost int
	// dummyHash is compared against when a login names an unknown email.
	dummyHash []byte
}

func newAuth(secret string, ttl time.Duration, bcryptCost int) (*auth, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	if err != nil {
		return nil, err
	}
	return &auth{
		secret:     []byte(secret),
		ttl:        ttl,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
	}, nil
}

func (a *auth) hashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), a.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword reports whether plaintext matches hash. Any mismatch or malformed hash is false.
func (a *auth) verifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// burnPasswordCheck spends the same bcrypt work as a real comparison.
func (a *auth) burnPasswordCheck(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(plaintext))
}

func (a *auth) generateToken(userID, email string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// verifyToken returns the token's claims, or nil if the token is malformed, badly signed,
// expired or carries no expiry at all.
func (a *auth) verifyToken(tokenStr string) *tokenClaims {
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.UserID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return claims
}
