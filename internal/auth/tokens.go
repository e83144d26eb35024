package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lab_booking/internal/config"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carried by both token kinds.
type Claims struct {
	UserID uint
	Role   string
}

// Tokens signs and verifies the access/refresh pair.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokens(cfg config.Auth) *Tokens {
	return &Tokens{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

// Pair returns a new access and refresh token for the user.
func (t *Tokens) Pair(userID uint, role string) (access, refresh string, err error) {
	access, err = generateToken(userID, role, t.accessTTL, t.accessSecret)
	if err != nil {
		return "", "", fmt.Errorf("access token: %w", err)
	}
	refresh, err = generateToken(userID, role, t.refreshTTL, t.refreshSecret)
	if err != nil {
		return "", "", fmt.Errorf("refresh token: %w", err)
	}
	return access, refresh, nil
}

func (t *Tokens) ParseAccess(token string) (Claims, error) {
	return parseToken(token, t.accessSecret)
}

func (t *Tokens) ParseRefresh(token string) (Claims, error) {
	return parseToken(token, t.refreshSecret)
}

func generateToken(userID uint, role string, duration time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     now.Add(duration).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseToken(tokenString string, secret []byte) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return Claims{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	return Claims{UserID: uint(userID), Role: role}, nil
}
