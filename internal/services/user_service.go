package services

import (
	"context"
	"errors"
	"fmt"

	"finarth/internal/amqp"
	"finarth/internal/auth"
	"finarth/internal/cache"
	"finarth/internal/core"
	"finarth/internal/log"
)

type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash, verificationToken string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	VerifyUser(ctx context.Context, token string) (core.User, error)
	CompleteOnboarding(ctx context.Context, o core.Onboarding) error
}

// UserService handles registration, login, verification, onboarding and profiles.
type UserService struct {
	store     UserStore
	tokens    *auth.TokenManager
	sessions  *cache.SessionCache
	publisher Publisher
	logger    *log.Logger
}

func NewUserService(store UserStore, tokens *auth.TokenManager, sessions *cache.SessionCache, publisher Publisher, logger *log.Logger) *UserService {
	return &UserService{
		store:     store,
		tokens:    tokens,
		sessions:  sessions,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentUsers),
	}
}

func (s *UserService) Register(ctx context.Context, email, password string) (core.User, error) {
	if err := core.ValidateCredentials(email, password); err != nil {
		return core.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	u, err := s.store.CreateUser(ctx, core.NormalizeEmail(email), hash, auth.NewVerificationToken())
	if err != nil {
		return core.User{}, err
	}

	ev, evErr := amqp.NewUserRegistered(amqp.UserRegistered{
		UserID:            u.ID,
		Email:             u.Email,
		VerificationToken: u.VerificationToken,
	})
	publish(ctx, s.publisher, s.logger, ev, evErr)

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID)
	return u, nil
}

// Login checks credentials and returns the profile with a signed access token.
func (s *UserService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	if err := core.ValidateCredentials(email, password); err != nil {
		return core.User{}, "", err
	}

	u, err := s.store.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return core.User{}, "", err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			s.logger.WarnContext(ctx, "Login rejected", log.FieldUserID, u.ID)
		}
		return core.User{}, "", err
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return core.User{}, "", err
	}

	if full, err := s.store.GetUser(ctx, u.ID); err == nil {
		u = full
	}
	s.sessions.Put(u)
	return u, token, nil
}

func (s *UserService) Verify(ctx context.Context, token string) (core.User, error) {
	u, err := s.store.VerifyUser(ctx, token)
	if err != nil {
		return core.User{}, err
	}
	s.sessions.Invalidate(u.ID)
	s.logger.InfoContext(ctx, "Email verified", log.FieldUserID, u.ID)
	return u, nil
}

// CompleteOnboarding stores the profile atomically and drops the cached copy.
func (s *UserService) CompleteOnboarding(ctx context.Context, o core.Onboarding) (core.User, error) {
	if err := o.Validate(); err != nil {
		return core.User{}, err
	}
	if err := s.store.CompleteOnboarding(ctx, o); err != nil {
		return core.User{}, fmt.Errorf("complete onboarding: %w", err)
	}
	s.sessions.Invalidate(o.UserID)
	return s.Profile(ctx, o.UserID)
}

// Profile reads through the session cache.
func (s *UserService) Profile(ctx context.Context, userID int64) (core.User, error) {
	if userID <= 0 {
		return core.User{}, core.ErrMissingUserID
	}
	if u, ok := s.sessions.Get(userID); ok {
		return u, nil
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, err
	}
	s.sessions.Put(u)
	return u, nil
}
