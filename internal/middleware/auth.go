package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"caseflow.dev/caseflowlearn/internal/entity"
	user "caseflow.dev/caseflowlearn/internal/modules/user/service"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const contextUser = "user"

// TokenVerifier is the slice of the auth service the middleware needs.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (*user.Claims, error)
	GetCurrentUser(ctx context.Context, token string) (*entity.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		claims, err := m.verifier.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, apperror.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperror.PublicMessage(err)})
				return
			}
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		u, err := m.verifier.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
				return
			}
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		setUser(c, u)
		c.Next()
	}
}

// OptionalAuth identifies the caller when the token belongs to a live
// account and lets everyone else through as anonymous.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := BearerToken(c); tokenString != "" {
			u, err := m.verifier.GetCurrentUser(c.Request.Context(), tokenString)
			if err != nil {
				slog.WarnContext(c.Request.Context(), "failed to resolve optional session", "error", err)
			} else if u != nil {
				setUser(c, u)
			}
		}
		c.Next()
	}
}

// setUser stores the account as loaded from the database, so handlers see
// the current role rather than the one signed into the token.
func setUser(c *gin.Context, u *entity.User) {
	c.Set(response.ContextUserID, u.ID.String())
	c.Set(response.ContextUserRole, string(u.Role))
	c.Set(contextUser, u)
}

// RequireRole checks the stored role, not the one embedded in the token, so
// role changes apply without waiting for the token to expire.
func (m *AuthMiddleware) RequireRole(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := c.Get(contextUser)
		current, _ := u.(*entity.User)
		if !ok || current == nil {
			userID, err := response.GetUserID(c)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
				return
			}

			current, err = m.verifier.GetUser(c.Request.Context(), userID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
				return
			}
			setUser(c, current)
		}

		for _, role := range roles {
			if current.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you do not have access to this resource"})
	}
}

// BearerToken reads the Authorization header, falling back to the token
// query parameter used by websocket clients.
func BearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}
