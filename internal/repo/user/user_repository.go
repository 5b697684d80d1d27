package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/accountdash/internal/domain"
)

// Repository defines the interface for user data persistence.
type Repository interface {
	// CreateUser adds a new user to the repository.
	// Returns ErrUserAlreadyExists if the username is already taken.
	CreateUser(ctx context.Context, username string, passwordHash []byte) error

	// GetUserByUsername retrieves a user by their username.
	// Returns ErrUserNotFound (joined with the driver error) if there is no such user.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, bool, error)

	// GetUserByID retrieves a user by their immutable id.
	// Returns ErrUserNotFound (joined with the driver error) if there is no such user.
	GetUserByID(ctx context.Context, id int64) (*domain.User, bool, error)

	// UpdateUsername renames a user.
	// Returns ErrUserNotFound if currentUsername does not exist and
	// ErrUserAlreadyExists if newUsername is taken.
	UpdateUsername(ctx context.Context, currentUsername, newUsername string) error

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)

// RepositoryConfig selects and configures the storage backend.
type RepositoryConfig struct {
	// Driver is either "sqlite" or "postgres"
	Driver string `env:"DRIVER" default:"sqlite"`

	SQLite   SQLiteUserRepositoryConfig   `envPrefix:"SQLITE_"`
	Postgres PostgresUserRepositoryConfig `envPrefix:"POSTGRES_"`
}

// ErrUnknownDriver is returned for an unsupported RepositoryConfig.Driver.
var ErrUnknownDriver = errors.New("unknown user repository driver")

// RepositoryFactoryFromConfig returns the factory for the configured driver.
func RepositoryFactoryFromConfig(cfg RepositoryConfig) (RepositoryFactory, error) {
	switch cfg.Driver {
	case "sqlite":
		return SQLiteUserRepositoryFactory(cfg.SQLite), nil
	case "postgres":
		return PostgresUserRepositoryFactory(cfg.Postgres), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
