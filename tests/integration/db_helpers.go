package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bkaraoglu/stajportal/internal/database"
	"github.com/bkaraoglu/stajportal/internal/repositories"
	pkgauth "github.com/bkaraoglu/stajportal/pkg/auth"
)

// TestDB manages the PostgreSQL testcontainer and database handles
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer and runs the
// goose migrations against it
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("stajportal"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         &database.DB{Pool: pool},
	}, nil
}

// runMigrations executes all goose migrations over a stdlib adapter
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	goose.SetLogger(log.New(io.Discard, "", 0))

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"pin_attempts",
		"security_events",
		"teachers",
		"companies",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances
func InitializeRepositories(db *database.DB) (
	*repositories.PinAttemptRepository,
	*repositories.PrincipalRepository,
	*repositories.SecurityEventRepository,
) {
	return repositories.NewPinAttemptRepository(db),
		repositories.NewPrincipalRepository(db),
		repositories.NewSecurityEventRepository(db)
}

// SeedTeacher inserts a teacher with a hashed PIN and returns its id
func SeedTeacher(ctx context.Context, pool *pgxpool.Pool, fullName, email, pin string) (string, error) {
	pinHash, err := pkgauth.HashPin(pin)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}

	query := `
		INSERT INTO teachers (full_name, email, pin_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id string
	if err := pool.QueryRow(ctx, query, fullName, email, pinHash).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert teacher: %w", err)
	}
	return id, nil
}

// SeedCompany inserts a company with a hashed PIN and returns its id
func SeedCompany(ctx context.Context, pool *pgxpool.Pool, name, email, pin string) (string, error) {
	pinHash, err := pkgauth.HashPin(pin)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}

	query := `
		INSERT INTO companies (name, email, pin_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id string
	if err := pool.QueryRow(ctx, query, name, email, pinHash).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert company: %w", err)
	}
	return id, nil
}
