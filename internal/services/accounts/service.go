// Package accounts handles registration, login, tokens and account lifecycle.
package accounts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkhedmin/mkhedmin-api/internal/apperr"
	"github.com/mkhedmin/mkhedmin-api/internal/models"
	"github.com/mkhedmin/mkhedmin-api/internal/store"
	"github.com/mkhedmin/mkhedmin-api/internal/utils"
	"github.com/mkhedmin/mkhedmin-api/internal/validation"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, u *models.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SoftDelete(ctx context.Context, u *models.User, now time.Time) error
}

type ProfileFinder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Freelancer, error)
}

var (
	errUserExists         = apperr.Conflict("USER_EXISTS", "User already exists")
	errInvalidCredentials = apperr.Unauthorized("INVALID_CREDENTIALS", "Invalid credentials")
	errDeactivated        = apperr.Unauthorized("ACCOUNT_DEACTIVATED", "Account is deactivated")
	errRefreshRequired    = apperr.BadRequest("REFRESH_TOKEN_REQUIRED", "Refresh token required")
	errInvalidRefresh     = apperr.Unauthorized("INVALID_REFRESH_TOKEN", "Invalid refresh token")
	errInvalidUser        = apperr.Unauthorized("INVALID_USER", "Invalid user")
	errTokenRequired      = apperr.Unauthorized("TOKEN_REQUIRED", "Access token required")
	errTokenExpired       = apperr.Unauthorized("TOKEN_EXPIRED", "Token expired")
	errInvalidToken       = apperr.Unauthorized("INVALID_TOKEN", "Invalid token")
	errWrongPassword      = apperr.BadRequest("INVALID_CURRENT_PASSWORD", "Current password is incorrect")
	errSamePassword       = apperr.BadRequest("INVALID_NEW_PASSWORD", "New password must differ from the current one")
)

type Service struct {
	users      UserStore
	profiles   ProfileFinder
	tokens     *utils.TokenManager
	denylist   Denylist
	bcryptCost int
	log        *slog.Logger
	now        func() time.Time
}

func NewService(users UserStore, profiles ProfileFinder, tokens *utils.TokenManager, denylist Denylist, bcryptCost int, log *slog.Logger) *Service {
	if denylist == nil {
		denylist = NoopDenylist{}
	}
	return &Service{
		users:      users,
		profiles:   profiles,
		tokens:     tokens,
		denylist:   denylist,
		bcryptCost: bcryptCost,
		log:        log,
		now:        time.Now,
	}
}

// ProfileSummary is the slice of a freelancer profile returned alongside the user.
type ProfileSummary struct {
	ID           uuid.UUID         `json:"id"`
	Slug         string            `json:"slug"`
	Name         string            `json:"name"`
	Title        string            `json:"title"`
	Avatar       string            `json:"avatar,omitempty"`
	Visibility   models.Visibility `json:"visibility"`
	Completeness int               `json:"completeness"`
	Stats        *models.Stats     `json:"stats,omitempty"`
	Missing      []string          `json:"missingFields,omitempty"`
}

func summarize(f *models.Freelancer, withStats bool) *ProfileSummary {
	if f == nil {
		return nil
	}
	s := &ProfileSummary{
		ID:           f.ID,
		Slug:         f.Slug,
		Name:         f.Name,
		Title:        f.Title,
		Avatar:       f.Avatar,
		Visibility:   f.Visibility,
		Completeness: f.Completeness.Score,
	}
	if withStats {
		stats := f.Stats
		s.Stats = &stats
		s.Missing = f.Completeness.Missing
	}
	return s
}

type AuthResult struct {
	Message string          `json:"message"`
	User    *models.User    `json:"user"`
	Profile *ProfileSummary `json:"profile,omitempty"`
	Tokens  utils.TokenPair `json:"tokens"`
}

type MeResult struct {
	User    *models.User    `json:"user"`
	Profile *ProfileSummary `json:"profile"`
}

func (s *Service) Register(ctx context.Context, in validation.RegisterInput) (*AuthResult, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, errUserExists
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperr.Internal(err)
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := s.now()
	u := &models.User{
		Email:       in.Email,
		Password:    hash,
		Role:        models.RoleFreelancer,
		IsActive:    true,
		Preferences: models.DefaultPreferences(in.Language),
		LastLogin:   &now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errUserExists
		}
		return nil, apperr.Internal(err)
	}

	pair, err := s.tokens.IssuePair(u.ID.String(), string(u.Role))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info("user registered", "user_id", u.ID)
	return &AuthResult{Message: "User registered successfully", User: u, Tokens: pair}, nil
}

func (s *Service) Login(ctx context.Context, in validation.LoginInput) (*AuthResult, error) {
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}
	if !u.IsActive {
		return nil, errDeactivated
	}
	if !utils.CheckPassword(u.Password, in.Password) {
		return nil, errInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(u.ID.String(), string(u.Role))
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, apperr.Internal(err)
	}
	u.LastLogin = &now

	profile, err := s.profileOf(ctx, u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Message: "Login successful", User: u, Profile: summarize(profile, false), Tokens: pair}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (utils.TokenPair, error) {
	if refreshToken == "" {
		return utils.TokenPair{}, errRefreshRequired
	}
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return utils.TokenPair{}, errInvalidRefresh
	}
	u, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return utils.TokenPair{}, err
	}
	pair, err := s.tokens.IssuePair(u.ID.String(), string(u.Role))
	if err != nil {
		return utils.TokenPair{}, apperr.Internal(err)
	}
	return pair, nil
}

// Authenticate resolves an access token to its active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, *utils.Claims, error) {
	if token == "" {
		return nil, nil, errTokenRequired
	}
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, nil, errTokenExpired
		}
		return nil, nil, errInvalidToken
	}

	revoked, err := s.denylist.Revoked(ctx, claims.ID)
	if err != nil {
		s.log.Warn("denylist lookup failed", "err", err)
	}
	if revoked {
		return nil, nil, errInvalidToken
	}

	u, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return u, claims, nil
}

func (s *Service) activeUser(ctx context.Context, rawID string) (*models.User, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errInvalidUser
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errInvalidUser
		}
		return nil, apperr.Internal(err)
	}
	if !u.IsActive {
		return nil, errInvalidUser
	}
	return u, nil
}

func (s *Service) profileOf(ctx context.Context, u *models.User) (*models.Freelancer, error) {
	if u.Role != models.RoleFreelancer {
		return nil, nil
	}
	f, err := s.profiles.FindByUserID(ctx, u.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal(err)
	}
	return f, nil
}

func (s *Service) Me(ctx context.Context, u *models.User) (*MeResult, error) {
	profile, err := s.profileOf(ctx, u)
	if err != nil {
		return nil, err
	}
	return &MeResult{User: u, Profile: summarize(profile, true)}, nil
}

// UpdatePreferences applies only the fields present in the request.
func (s *Service) UpdatePreferences(ctx context.Context, u *models.User, in validation.PreferencesInput) (models.Preferences, error) {
	if err := validation.Validate(&in); err != nil {
		return models.Preferences{}, err
	}
	if in.Language != nil {
		u.Preferences.Language = *in.Language
	}
	if n := in.Notifications; n != nil {
		if n.Email != nil {
			u.Preferences.Notifications.Email = *n.Email
		}
		if n.SMS != nil {
			u.Preferences.Notifications.SMS = *n.SMS
		}
	}
	if err := s.users.Save(ctx, u); err != nil {
		return models.Preferences{}, apperr.Internal(err)
	}
	return u.Preferences, nil
}

func (s *Service) ChangePassword(ctx context.Context, u *models.User, in validation.ChangePasswordInput) error {
	if err := validation.Validate(&in); err != nil {
		return err
	}
	if !utils.CheckPassword(u.Password, in.CurrentPassword) {
		return errWrongPassword
	}
	if in.NewPassword == in.CurrentPassword {
		return errSamePassword
	}
	hash, err := utils.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return apperr.Internal(err)
	}
	u.Password = hash
	if err := s.users.Save(ctx, u); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Logout revokes the presented access token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, claims *utils.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		s.log.Warn("token revoke failed", "user_id", claims.UserID, "err", err)
	}
	return nil
}

func (s *Service) DeleteAccount(ctx context.Context, u *models.User) error {
	if err := s.users.SoftDelete(ctx, u, s.now()); err != nil {
		return apperr.Internal(err)
	}
	s.log.Info("account deleted", "user_id", u.ID)
	return nil
}

// LoginWithGoogle signs in the owner of a Google-verified email, creating the account on first use.
func (s *Service) LoginWithGoogle(ctx context.Context, email string) (*AuthResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.BadRequest("GOOGLE_EMAIL_MISSING", "Email not provided by Google")
	}

	u, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		hash, herr := utils.HashPassword(utils.RandomState(24), s.bcryptCost)
		if herr != nil {
			return nil, apperr.Internal(herr)
		}
		u = &models.User{
			Email:       email,
			Password:    hash,
			Role:        models.RoleFreelancer,
			IsActive:    true,
			IsVerified:  true,
			Preferences: models.DefaultPreferences(""),
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, apperr.Internal(err)
		}
		s.log.Info("user registered via google", "user_id", u.ID)
	case err != nil:
		return nil, apperr.Internal(err)
	}

	if !u.IsActive {
		return nil, errDeactivated
	}

	pair, err := s.tokens.IssuePair(u.ID.String(), string(u.Role))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, apperr.Internal(err)
	}
	u.LastLogin = &now
	return &AuthResult{Message: "Login successful", User: u, Tokens: pair}, nil
}
