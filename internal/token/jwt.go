package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents JWT claims issued by the local identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	TokenType string `json:"typ"`
}

// JWT issues and validates HS256 id/refresh tokens for the local identity provider.
type JWT struct {
	secretKey string
	idTTL     time.Duration
}

const (
	defaultIDTTL = time.Hour
	refreshTTL   = 30 * 24 * time.Hour
	typeID       = "id"
	typeRefresh  = "refresh"
)

// NewJWT creates a new JWT issuer with the provided secret key.
func NewJWT(secretKey string) *JWT {
	return NewJWTWithTTL(secretKey, defaultIDTTL)
}

// NewJWTWithTTL creates a new JWT issuer whose id tokens live for idTTL.
func NewJWTWithTTL(secretKey string, idTTL time.Duration) *JWT {
	return &JWT{secretKey: secretKey, idTTL: idTTL}
}

// GenerateIDToken creates a short-lived id token for the account.
func (j *JWT) GenerateIDToken(userID uuid.UUID, email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.idTTL)),
		},
		Email:     email,
		TokenType: typeID,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign id token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken creates a long-lived refresh token and returns its JTI.
func (j *JWT) GenerateRefreshToken(userID uuid.UUID) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshTTL)),
		},
		TokenType: typeRefresh,
	})

	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, jti, nil
}

// ParseIDToken validates an id token and returns its account ID and email.
func (j *JWT) ParseIDToken(tokenString string) (uuid.UUID, string, error) {
	claims, err := j.parse(tokenString, typeID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to parse id token: %w", err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("id token subject is not a uuid: %w", err)
	}
	return userID, claims.Email, nil
}

// ParseRefreshToken validates a refresh token and returns its account ID and JTI.
func (j *JWT) ParseRefreshToken(tokenString string) (uuid.UUID, string, error) {
	claims, err := j.parse(tokenString, typeRefresh)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to parse refresh token: %w", err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("refresh token subject is not a uuid: %w", err)
	}
	return userID, claims.ID, nil
}

func (j *JWT) parse(tokenString, tokenType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("token type mismatch: %s", claims.TokenType)
	}
	return claims, nil
}
