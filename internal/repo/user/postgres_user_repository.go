package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/mkrupp/accountdash/internal/domain"
	"github.com/mkrupp/accountdash/internal/infra/logging"
)

const pgUniqueViolation = "23505"

// PostgresUserRepositoryConfig holds configuration for the PostgreSQL user repository.
type PostgresUserRepositoryConfig struct {
	Host     string `env:"HOST" default:"localhost"`
	Port     int    `env:"PORT" default:"5432"`
	User     string `env:"USER" default:"postgres"`
	Password string `env:"PASSWORD" default:""`
	DBName   string `env:"DB_NAME" default:"accounts"`
	SSLMode  string `env:"SSL_MODE" default:"disable"`

	MaxOpenConns int `env:"MAX_OPEN_CONNS" default:"10"`
}

// DSN renders the config as a postgres:// URL understood by pgx.
func (c PostgresUserRepositoryConfig) DSN() string {
	//nolint:exhaustruct
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}

	return u.String()
}

// PostgresUserRepository implements Repository on PostgreSQL through the pgx driver.
type PostgresUserRepository struct {
	db  *sql.DB
	log logging.Logger
}

var _ Repository = (*PostgresUserRepository)(nil)

// PostgresUserRepositoryFactory creates a factory function that returns a new PostgresUserRepository.
func PostgresUserRepositoryFactory(cfg PostgresUserRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewPostgresUserRepository(ctx, cfg)
	}
}

// NewPostgresUserRepository connects to PostgreSQL and migrates the schema.
func NewPostgresUserRepository(ctx context.Context, cfg PostgresUserRepositoryConfig) (*PostgresUserRepository, error) {
	log := logging.GetLogger("repo.user.postgres_user_repository").With(
		logging.Group("db", "host", cfg.Host, "name", cfg.DBName),
	)

	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := migrate(ctx, db, goose.DialectPostgres, "postgres", log); err != nil {
		db.Close()

		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return NewPostgresUserRepositoryWithDB(db, log), nil
}

// NewPostgresUserRepositoryWithDB wraps an already migrated database handle.
func NewPostgresUserRepositoryWithDB(db *sql.DB, log logging.Logger) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, log: log}
}

// CreateUser implements Repository.CreateUser.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, username string, passwordHash []byte) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at, updated_at) VALUES ($1, $2, $3, 0)",
		username,
		passwordHash,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", pgConstraintError(err))
	}

	return nil
}

// GetUserByUsername implements Repository.GetUserByUsername.
func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, bool, error) {
	var user domain.User

	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username = $1",
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, false, fmt.Errorf("query user: %w", err)
	}

	return &user, true, nil
}

// GetUserByID implements Repository.GetUserByID.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, bool, error) {
	var user domain.User

	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at, updated_at FROM users WHERE id = $1",
		id,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, false, fmt.Errorf("query user: %w", err)
	}

	return &user, true, nil
}

// UpdateUsername implements Repository.UpdateUsername.
func (r *PostgresUserRepository) UpdateUsername(ctx context.Context, currentUsername, newUsername string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET username = $1, updated_at = $2 WHERE username = $3",
		newUsername,
		time.Now().Unix(),
		currentUsername,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", pgConstraintError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("update user: %w", domain.ErrUserNotFound)
	}

	return nil
}

// Close implements Repository.Close.
func (r *PostgresUserRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

func pgConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errors.Join(domain.ErrUserAlreadyExists, err)
	}

	return err
}
