package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the Postgres connection pool and every entity repository.
type Store struct {
	DB *sqlx.DB

	Submissions   *SubmissionRepo
	Objects       *ObjectRepo
	Files         *FileRepo
	Registrations *RegistrationRepo
	ApiKeys       *ApiKeyRepo
}

// Open connects to Postgres with retrying backoff (the connection may not
// be ready yet if the database container is still starting), applies
// pending goose migrations, and constructs the repository set.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sqlDB, err := connectWithRetry(ctx, dsn, 5, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	db := sqlx.NewDb(sqlDB, "pgx")

	if err := migrate(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		DB:            db,
		Submissions:   &SubmissionRepo{db: db},
		Objects:       &ObjectRepo{db: db},
		Files:         &FileRepo{db: db},
		Registrations: &RegistrationRepo{db: db},
		ApiKeys:       &ApiKeyRepo{db: db},
	}, nil
}

func connectWithRetry(ctx context.Context, dsn string, maxAttempts int, backoff time.Duration) (*sql.DB, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		db, err := sql.Open("pgx", dsn)
		if err == nil {
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				lastErr = pingErr
				db.Close()
			}
		} else {
			lastErr = err
		}

		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff * time.Duration(attempt+1)):
		}
	}
	return nil, fmt.Errorf("store: connect after %d attempts: %w", maxAttempts, lastErr)
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("store: goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}
