package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ray-remotestate/foodie/middlewares"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenIssuer signs access and refresh tokens with a shared HS256 secret.
type TokenIssuer struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

func NewTokenIssuer(secret []byte, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenIssuer{Secret: secret, AccessTTL: accessTTL, RefreshTTL: refreshTTL, Now: time.Now}
}

func (t *TokenIssuer) GenerateTokens(userID uuid.UUID, roles []string) (accessToken string, refreshToken string, err error) {
	accessToken, err = t.GenerateAccessToken(userID, roles)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = t.sign(userID, roles, middlewares.RefreshToken, t.RefreshTTL)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (t *TokenIssuer) GenerateAccessToken(userID uuid.UUID, roles []string) (string, error) {
	return t.sign(userID, roles, middlewares.AccessToken, t.AccessTTL)
}

// ParseRefreshToken rejects access tokens so a stolen access token cannot be renewed.
func (t *TokenIssuer) ParseRefreshToken(token string) (*middlewares.Claims, error) {
	return middlewares.ParseToken(t.Secret, token, middlewares.RefreshToken)
}

func (t *TokenIssuer) sign(userID uuid.UUID, roles []string, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	issued := now()
	claims := &middlewares.Claims{
		UserID:    userID,
		Roles:     roles,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issued),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
}

func HashPassword(pw string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
