package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Claims struct {
	Role entity.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type tokenManager struct {
	secret      []byte
	ttl         time.Duration
	redisClient *redis.Client
}

func revokedKey(jti string) string {
	return fmt.Sprintf("revoked_token:%s", jti)
}

func revokedUserKey(userID string) string {
	return fmt.Sprintf("revoked_user:%s", userID)
}

// issuedBefore reports whether the token was issued at or before cutoff, a
// unix timestamp. Tokens carry second precision, so a token minted in the
// same second as the cutoff counts as revoked.
func issuedBefore(claims *Claims, cutoff int64) bool {
	if claims.IssuedAt == nil {
		return true
	}
	return claims.IssuedAt.Unix() <= cutoff
}

func (m *tokenManager) issue(user *entity.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *tokenManager) parse(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("authorization required: %w", apperror.ErrUnauthorized)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.New(http.StatusUnauthorized, "invalid or expired token", apperror.ErrUnauthorized)
	}

	if m.redisClient != nil && claims.ID != "" {
		exists, err := m.redisClient.Exists(ctx, revokedKey(claims.ID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if exists > 0 {
			return nil, apperror.New(http.StatusUnauthorized, "session has ended", apperror.ErrUnauthorized)
		}
	}

	if m.redisClient != nil {
		cutoff, err := m.redisClient.Get(ctx, revokedUserKey(claims.Subject)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to check session revocation: %w", err)
		}
		if err == nil {
			if at, convErr := strconv.ParseInt(cutoff, 10, 64); convErr == nil && issuedBefore(claims, at) {
				return nil, apperror.New(http.StatusUnauthorized, "session has ended", apperror.ErrUnauthorized)
			}
		}
	}

	return claims, nil
}

// revoke blacklists the token id until the token would have expired anyway.
func (m *tokenManager) revoke(ctx context.Context, claims *Claims) error {
	if m.redisClient == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return m.redisClient.Set(ctx, revokedKey(claims.ID), "1", ttl).Err()
}

// revokeUser ends every token issued to the user so far. The marker lives as
// long as the longest token it can affect.
func (m *tokenManager) revokeUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	if m.redisClient == nil {
		return nil
	}
	return m.redisClient.Set(ctx, revokedUserKey(userID.String()), strconv.FormatInt(now.Unix(), 10), m.ttl).Err()
}
