package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrRevokedToken = errors.New("token has been revoked")
)

// Claims represents JWT claims
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token operations
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// GenerateToken creates a new JWT token for a user
func (j *JWTManager) GenerateToken(userID uuid.UUID, email, name string) (string, error) {
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chatcore",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken parses and validates a JWT token
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Verifier checks bearer tokens against the shared revocation list before
// validating them. Tokens are revoked by the auth service by setting
// blacklist:<token> in Redis.
type Verifier struct {
	jwt *JWTManager
	rdb *redis.Client
}

// NewVerifier builds a Verifier. With a nil rdb no revocation check is made.
func NewVerifier(jwtManager *JWTManager, rdb *redis.Client) *Verifier {
	return &Verifier{jwt: jwtManager, rdb: rdb}
}

// Verify returns the claims of a valid, unrevoked token. Errors other than
// ErrInvalidToken and ErrRevokedToken come from Redis.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	if v.rdb != nil {
		exists, err := v.rdb.Exists(ctx, "blacklist:"+tokenString).Result()
		if err != nil {
			return nil, err
		}
		if exists > 0 {
			return nil, ErrRevokedToken
		}
	}

	claims, err := v.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
