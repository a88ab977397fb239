package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	"caseflow.dev/caseflowlearn/internal/modules/user/dto"
	"caseflow.dev/caseflowlearn/internal/modules/user/repository"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"caseflow.dev/caseflowlearn/pkg/authevents"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var errInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid credentials", apperror.ErrUnauthorized)

type AuthService interface {
	SignUp(ctx context.Context, input dto.SignUpInput) (*dto.Session, error)
	SignIn(ctx context.Context, input dto.SignInInput) (*dto.Session, error)
	// Authenticate validates a bearer token, including revocation.
	Authenticate(ctx context.Context, token string) (*Claims, error)
	// GetCurrentUser returns nil without error when the token does not
	// identify a live user.
	GetCurrentUser(ctx context.Context, token string) (*entity.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	Refresh(ctx context.Context, token string) (*dto.Session, error)
	SignOut(ctx context.Context, token string) error
	// RevokeSessions ends every token already issued to the user.
	RevokeSessions(ctx context.Context, userID uuid.UUID) error
	Subscribe(cb authevents.Callback) func()
	GoogleLogin(state string) string
	GoogleCallback(ctx context.Context, code string) (*dto.Session, error)
}

type Config struct {
	Secret         string
	TokenTTL       time.Duration
	Google         *oauth2.Config
	AllowedDomains []string
}

// NewGoogleConfig builds the OAuth client used for Google sign-in.
func NewGoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

type authService struct {
	repo           repository.UserRepository
	hub            *authevents.Hub
	tokens         *tokenManager
	googleConfig   *oauth2.Config
	allowedDomains []string
}

func NewAuthService(repo repository.UserRepository, hub *authevents.Hub, redisClient *redis.Client, cfg Config) AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &authService{
		repo: repo,
		hub:  hub,
		tokens: &tokenManager{
			secret:      []byte(cfg.Secret),
			ttl:         ttl,
			redisClient: redisClient,
		},
		googleConfig:   cfg.Google,
		allowedDomains: cfg.AllowedDomains,
	}
}

func (s *authService) SignUp(ctx context.Context, input dto.SignUpInput) (*dto.Session, error) {
	role := entity.Role(input.Role)
	if role != entity.RoleStudent && role != entity.RoleEvaluator {
		return nil, apperror.Validation("role must be student or evaluator")
	}

	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, apperror.Validation("Full name is required")
	}

	specialty := normalizeOptional(input.Specialty)
	affiliation := normalizeOptional(input.Affiliation)
	if role == entity.RoleEvaluator && (specialty == nil || affiliation == nil) {
		return nil, apperror.Validation("Specialty and affiliation are required for evaluators")
	}

	email := normalizeEmail(input.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperror.New(http.StatusConflict, "email is already registered", apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
	}
	profile := &entity.Profile{
		FullName:    fullName,
		Role:        role,
		Specialty:   specialty,
		Affiliation: affiliation,
	}

	if err := s.repo.Create(ctx, user, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.New(http.StatusConflict, "email is already registered", apperror.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.Profile = profile

	return s.issueSession(ctx, user, authevents.SignedUp)
}

func (s *authService) SignIn(ctx context.Context, input dto.SignInInput) (*dto.Session, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.issueSession(ctx, user, authevents.SignedIn)
}

func (s *authService) Authenticate(ctx context.Context, token string) (*Claims, error) {
	return s.tokens.parse(ctx, token)
}

func (s *authService) GetCurrentUser(ctx context.Context, token string) (*entity.User, error) {
	claims, err := s.tokens.parse(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			return nil, nil
		}
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, nil
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) Refresh(ctx context.Context, token string) (*dto.Session, error) {
	claims, err := s.tokens.parse(ctx, token)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", apperror.ErrUnauthorized)
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user no longer exists: %w", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := s.tokens.revoke(ctx, claims); err != nil {
		slog.WarnContext(ctx, "failed to revoke refreshed token", "user_id", user.ID, "error", err)
	}

	return s.issueSession(ctx, user, authevents.TokenRefreshed)
}

func (s *authService) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.parse(ctx, token)
	if err != nil {
		return err
	}

	if err := s.tokens.revoke(ctx, claims); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	if userID, err := claims.UserID(); err == nil && s.hub != nil {
		s.hub.Publish(ctx, authevents.Event{Kind: authevents.SignedOut, UserID: userID, Role: string(claims.Role)})
	}
	return nil
}

func (s *authService) RevokeSessions(ctx context.Context, userID uuid.UUID) error {
	if err := s.tokens.revokeUser(ctx, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

func (s *authService) Subscribe(cb authevents.Callback) func() {
	if s.hub == nil {
		return func() {}
	}
	return s.hub.Subscribe(cb)
}

func (s *authService) GoogleLogin(state string) string {
	return s.googleConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *authService) GoogleCallback(ctx context.Context, code string) (*dto.Session, error) {
	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.New(http.StatusBadRequest, "failed to exchange google code", err)
	}

	resp, err := s.googleConfig.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return nil, apperror.Remote("Failed to sign in with Google", err)
	}
	defer resp.Body.Close()

	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, apperror.Remote("Failed to sign in with Google", err)
	}

	if !gu.VerifiedEmail || !emailDomainAllowed(gu.Email, s.allowedDomains) {
		return nil, apperror.New(http.StatusForbidden, "this Google account is not allowed to sign in", apperror.ErrForbidden)
	}

	email := normalizeEmail(gu.Email)
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		// Random password: Google accounts sign in through OAuth only.
		hashed, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}

		fullName := strings.TrimSpace(gu.Name)
		if fullName == "" {
			fullName = strings.Split(email, "@")[0]
		}

		user = &entity.User{
			Email:        email,
			PasswordHash: string(hashed),
			Role:         entity.RoleStudent,
			GoogleID:     &gu.ID,
		}
		profile := &entity.Profile{
			FullName:  fullName,
			Role:      entity.RoleStudent,
			AvatarURL: normalizeOptional(&gu.Picture),
		}
		if err := s.repo.Create(ctx, user, profile); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return s.issueSession(ctx, user, authevents.SignedUp)
	}

	if user.GoogleID == nil || *user.GoogleID != gu.ID {
		user.GoogleID = &gu.ID
		if err := s.repo.Update(ctx, user); err != nil {
			slog.WarnContext(ctx, "failed to link google account", "user_id", user.ID, "error", err)
		}
	}

	return s.issueSession(ctx, user, authevents.SignedIn)
}

func (s *authService) issueSession(ctx context.Context, user *entity.User, kind authevents.Kind) (*dto.Session, error) {
	token, expiresAt, err := s.tokens.issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if s.hub != nil {
		s.hub.Publish(ctx, authevents.Event{Kind: kind, UserID: user.ID, Role: string(user.Role)})
	}

	return &dto.Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		User:        user,
		Profile:     user.Profile,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// emailDomainAllowed accepts every domain when the list is empty.
func emailDomainAllowed(email string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range domains {
		if domain == strings.ToLower(strings.TrimPrefix(d, "@")) {
			return true
		}
	}
	return false
}
