// Package users stores login credentials and issues session tokens.
package users

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"salakbook/internal/domain/models"
	"salakbook/internal/repository"
)

const collectionName = "users"

// ErrUsernameTaken indicates a registration against an existing username.
var ErrUsernameTaken = errors.New("username already registered")

// ErrInvalidCredentials indicates a failed login attempt.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Service manages credential records through the backend selector.
type Service struct {
	backend *repository.Selector
	logger  *zap.Logger
}

// NewService wires a credential service.
func NewService(backend *repository.Selector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, logger: logger}
}

// Register stores a new user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, username, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.backend.Run(ctx, collectionName, func(ctx context.Context, c repository.Collection) error {
		existing, err := c.Query(ctx, repository.Document{"username": username})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrUsernameTaken
		}

		_, err = c.Add(ctx, repository.Document{
			"username":      username,
			"password_hash": string(hash),
			"role":          role,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("register user: %w", err)
	}

	s.logger.Info("user registered", zap.String("username", username), zap.String("role", role))
	return nil
}

// Authenticate verifies a username/password pair and returns the credential
// record on success.
func (s *Service) Authenticate(ctx context.Context, username, password string) (models.Credential, error) {
	cred, found, err := s.lookup(ctx, username)
	if err != nil {
		return models.Credential{}, err
	}
	if !found {
		return models.Credential{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return models.Credential{}, ErrInvalidCredentials
	}
	return cred, nil
}

// Usernames lists every registered user, for the daily summary job.
func (s *Service) Usernames(ctx context.Context) ([]string, error) {
	var names []string
	_, err := s.backend.Run(ctx, collectionName, func(ctx context.Context, c repository.Collection) error {
		docs, err := c.Query(ctx, repository.Document{})
		if err != nil {
			return err
		}
		names = names[:0]
		for _, stored := range docs {
			if name, ok := stored.Data["username"].(string); ok {
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}
	return names, nil
}

func (s *Service) lookup(ctx context.Context, username string) (models.Credential, bool, error) {
	var (
		cred  models.Credential
		found bool
	)
	_, err := s.backend.Run(ctx, collectionName, func(ctx context.Context, c repository.Collection) error {
		docs, err := c.Query(ctx, repository.Document{"username": username})
		if err != nil {
			return err
		}
		found = len(docs) > 0
		if !found {
			return nil
		}

		data := docs[0].Data
		cred = models.Credential{Username: username}
		if hash, ok := data["password_hash"].(string); ok {
			cred.PasswordHash = hash
		}
		if role, ok := data["role"].(string); ok {
			cred.Role = role
		}
		return nil
	})
	if err != nil {
		return models.Credential{}, false, fmt.Errorf("lookup user: %w", err)
	}
	return cred, found, nil
}
