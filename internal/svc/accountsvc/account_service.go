package accountsvc

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/accountdash/internal/domain"
	"github.com/mkrupp/accountdash/internal/infra/logging"
	"github.com/mkrupp/accountdash/internal/repo/user"
)

// AccountConfig contains configuration parameters for the account service.
type AccountConfig struct {
	// SigningKeyFile is the path to the RSA private key file
	SigningKeyFile string `env:"SIGNING_KEY_FILE" default:"var/storage/accountsvc.key"`

	// TokenDuration is the validity duration of session tokens
	TokenDuration time.Duration `env:"TOKEN_DURATION" default:"24h"`

	// BcryptCost is the bcrypt work factor for password hashes
	BcryptCost int `env:"BCRYPT_COST" default:"12"`
}

// AccountService provides registration, login, session validation and
// username changes.
type AccountService struct {
	Config     AccountConfig
	UserRepo   user.Repository
	Log        logging.Logger
	SigningKey *rsa.PrivateKey
	Now        func() time.Time
}

// NewAccountService creates a new AccountService with the given user repository factory and configuration.
// Returns an error if the signing key cannot be loaded or the user repository cannot be created.
func NewAccountService(ctx context.Context, repoFactory user.RepositoryFactory, cfg AccountConfig) (*AccountService, error) {
	signingKey, err := GetPrivateKey(cfg.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("get private key: %w", err)
	}

	userRepo, err := repoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	return &AccountService{
		Config:     cfg,
		UserRepo:   userRepo,
		Log:        logging.GetLogger("svc.accountsvc.account_service"),
		SigningKey: signingKey,
		Now:        time.Now,
	}, nil
}

// RegisterUser validates the credentials and stores a new account with a
// bcrypt hash of the password.
func (s *AccountService) RegisterUser(ctx context.Context, username, password string) (err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}()

	if err := errors.Join(domain.ValidateUsername(username), domain.ValidatePassword(password)); err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.Config.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.UserRepo.CreateUser(ctx, username, passwordHash); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// Login checks the credentials and returns a signed session token.
func (s *AccountService) Login(ctx context.Context, username, password string) (_ string, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	user, ok, err := s.UserRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", errors.Join(domain.ErrInvalidCredentials, err)
		}

		return "", fmt.Errorf("get user: %w", err)
	} else if !ok {
		return "", domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", errors.Join(domain.ErrInvalidCredentials, err)
	}

	now := s.now()

	token, err := IssueToken(user.ID, user.Username, s.SigningKey, now, s.Config.TokenDuration)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	log = log.With(logging.Group("token",
		"exp", now.Add(s.Config.TokenDuration).UTC().Format(time.RFC3339),
		"iat", now.UTC().Format(time.RFC3339),
	))

	return token, nil
}

// ValidateToken verifies a session token's signature and expiration and that
// it still belongs to the account it was issued for. A token is rejected once
// its account is gone or has been renamed, so a rename forces a new login.
func (s *AccountService) ValidateToken(ctx context.Context, tokenString string) (token domain.AuthToken, err error) {
	defer func() {
		if err != nil {
			s.Log.DebugContext(ctx, "validate token failed", "error", err)
		}
	}()

	token, err = ParseToken(tokenString, &s.SigningKey.PublicKey)
	if err != nil {
		return domain.AuthToken{}, fmt.Errorf("validate token: %w", err)
	}

	user, ok, err := s.UserRepo.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, err)
		}

		return domain.AuthToken{}, fmt.Errorf("get user: %w", err)
	} else if !ok {
		return domain.AuthToken{}, domain.ErrInvalidAuthToken
	}

	if user.Username != token.Username {
		return domain.AuthToken{}, fmt.Errorf("%w: account renamed", domain.ErrInvalidAuthToken)
	}

	return token, nil
}

// UpdateUsername renames currentUsername to newUsername. The new name must
// satisfy the username rules, differ from the current one and be free.
func (s *AccountService) UpdateUsername(ctx context.Context, currentUsername, newUsername string) (err error) {
	log := s.Log.With(logging.Group("user", "username", currentUsername, "new_username", newUsername))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "update username failed", "error", err)
		} else {
			log.InfoContext(ctx, "username updated")
		}
	}()

	if err := domain.ValidateUsername(newUsername); err != nil {
		return fmt.Errorf("validate username: %w", err)
	}

	if newUsername == currentUsername {
		return domain.ErrUsernameUnchanged
	}

	if err := s.UserRepo.UpdateUsername(ctx, currentUsername, newUsername); err != nil {
		return fmt.Errorf("update username: %w", err)
	}

	return nil
}

// Close releases resources held by the service, such as database connections.
func (s *AccountService) Close() error {
	if err := s.UserRepo.Close(); err != nil {
		return fmt.Errorf("close user repo: %w", err)
	}

	return nil
}

func (s *AccountService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}

	return s.Now()
}
