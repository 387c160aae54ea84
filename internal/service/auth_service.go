package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/session"
)

// AuthService registers users and resolves session tokens into identities.
// Every credential or session failure collapses into ErrUnauthenticated.
type AuthService struct {
	userRepo *repository.UserRepository
	sessions session.Store
	hasher   PasswordHasher

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(userRepo *repository.UserRepository, sessions session.Store, hasher PasswordHasher) *AuthService {
	return &AuthService{userRepo: userRepo, sessions: sessions, hasher: hasher}
}

// Register creates an account. Storage failures (a taken e-mail included) are
// logged and returned without detail for the caller to show.
func (s *AuthService) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	switch {
	case name == "":
		return invalid("name", "is required")
	case email == "":
		return invalid("email", "is required")
	case password == "":
		return invalid("password", "is required")
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	user := model.User{Name: name, Email: email, PasswordHash: digest}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return invalid("email", "is already registered")
		}
		log.WithError(err).WithField("email", email).Error("register user")
		return err
	}
	log.WithField("user_id", user.ID).Info("user registered")
	return nil
}

// Authenticate checks an e-mail/password pair.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithError(err).Warn("look up user for login")
		}
		// Spend the same bcrypt time as a real check.
		s.hasher.Verify(password, s.dummy())
		return nil, ErrUnauthenticated
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// Login authenticates and issues a new session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		log.WithError(err).WithField("user_id", user.ID).Error("issue session")
		return "", ErrUnauthenticated
	}
	return token, nil
}

// Logout revokes the session behind token. Unknown tokens are fine.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// Resolve maps a session token to an identity, or nil.
func (s *AuthService) Resolve(ctx context.Context, token string) *model.Identity {
	if token == "" {
		return nil
	}
	userID, err := s.sessions.Validate(ctx, token)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			log.WithError(err).Warn("validate session")
		}
		return nil
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("session user missing")
		return nil
	}
	return &model.Identity{UserID: user.ID, Name: user.Name}
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("taskboard-timing-equalizer")
		if err == nil {
			s.dummyDigest = digest
		}
	})
	return s.dummyDigest
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
