package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/creatorly/publisher/internal/storage/postgres"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testDB   *sql.DB
	testDSN  string
	testPort string
)

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}

	pool.MaxWait = 60 * time.Second

	err = pool.Client.Ping()
	if err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	pg, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "17-alpine",
		Env: []string{
			"POSTGRES_USER=testuser",
			"POSTGRES_PASSWORD=testpass",
			"POSTGRES_DB=publisher_test",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start postgres container: %s", err)
	}

	testPort = pg.GetPort("5432/tcp")
	testDSN = fmt.Sprintf(
		"host=localhost user=testuser password=testpass dbname=publisher_test port=%s sslmode=disable TimeZone=UTC",
		testPort,
	)

	if err := pool.Retry(func() error {
		var err error
		testDB, err = sql.Open("postgres", testDSN)
		if err != nil {
			log.Printf("Failed to open database: %v", err)
			return err
		}

		testDB.SetMaxOpenConns(10)
		testDB.SetMaxIdleConns(5)
		testDB.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := testDB.PingContext(ctx); err != nil {
			testDB.Close()
			return err
		}

		// Run Goose migrations
		if err := runMigrations(testDB); err != nil {
			log.Printf("Failed to run migrations: %v", err)
			testDB.Close()
			return err
		}

		return nil
	}); err != nil {
		log.Fatalf("Could not connect to postgres: %s", err)
	}

	os.Setenv("POSTGRES_USER", "testuser")
	os.Setenv("POSTGRES_PASSWORD", "testpass")
	os.Setenv("POSTGRES_DB", "publisher_test")
	os.Setenv("POSTGRES_HOST", "localhost")
	os.Setenv("POSTGRES_PORT", testPort)
	os.Setenv("DB_MAX_RETRIES", "3")
	os.Setenv("DB_RETRY_DELAY", "100ms")

	code := m.Run()

	if testDB != nil {
		testDB.Close()
	}

	if err := pool.Purge(pg); err != nil {
		log.Fatalf("Could not purge postgres container: %s", err)
	}

	os.Exit(code)
}

func runMigrations(db *sql.DB) error {
	_, filename, _, _ := runtime.Caller(0)
	testDir := filepath.Dir(filename)
	projectRoot := filepath.Join(testDir, "../..")
	migrationsDir := filepath.Join(projectRoot, "migrations")

	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory does not exist: %s", migrationsDir)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	return nil
}

func TestConnectDB(t *testing.T) {
	tests := []struct {
		name        string
		config      *postgres.Config
		wantErr     bool
		errContains string
		validate    func(t *testing.T, db *gorm.DB)
	}{
		{
			name:    "load from environment set up by TestMain",
			config:  nil,
			wantErr: false,
			validate: func(t *testing.T, db *gorm.DB) {
				require.NotNil(t, db)

				sqlDB, err := db.DB()
				require.NoError(t, err)
				assert.NoError(t, sqlDB.Ping())

				var dbName string
				err = db.Raw("SELECT current_database()").Scan(&dbName).Error
				require.NoError(t, err)
				assert.Equal(t, "publisher_test", dbName)

				stats := sqlDB.Stats()
				assert.Equal(t, 50, stats.MaxOpenConnections)
			},
		},
		{
			name: "explicit config",
			config: &postgres.Config{
				User:       "testuser",
				Password:   "testpass",
				Host:       "localhost",
				Port:       testPort,
				Database:   "publisher_test",
				MaxRetries: 3,
				RetryDelay: 100 * time.Millisecond,
				LogLevel:   logger.Silent,
			},
			wantErr: false,
			validate: func(t *testing.T, db *gorm.DB) {
				require.NotNil(t, db)

				tx := db.Begin()
				require.NotNil(t, tx)
				assert.NoError(t, tx.Error)
				assert.NoError(t, tx.Rollback().Error)
			},
		},
		{
			name: "connection refused on wrong port",
			config: &postgres.Config{
				User:       "testuser",
				Password:   "testpass",
				Host:       "localhost",
				Port:       "19999",
				Database:   "publisher_test",
				MaxRetries: 2,
				RetryDelay: 5 * time.Millisecond,
				LogLevel:   logger.Silent,
			},
			wantErr:     true,
			errContains: "database connection failed after 2 attempts",
			validate: func(t *testing.T, db *gorm.DB) {
				assert.Nil(t, db)
			},
		},
		{
			name: "invalid credentials",
			config: &postgres.Config{
				User:       "testuser",
				Password:   "wrongpass",
				Host:       "localhost",
				Port:       testPort,
				Database:   "publisher_test",
				MaxRetries: 2,
				RetryDelay: 5 * time.Millisecond,
				LogLevel:   logger.Silent,
			},
			wantErr:     true,
			errContains: "database connection failed after 2 attempts",
			validate: func(t *testing.T, db *gorm.DB) {
				assert.Nil(t, db)
			},
		},
		{
			name: "non-existent database",
			config: &postgres.Config{
				User:       "testuser",
				Password:   "testpass",
				Host:       "localhost",
				Port:       testPort,
				Database:   "nonexistent_db",
				MaxRetries: 2,
				RetryDelay: 5 * time.Millisecond,
				LogLevel:   logger.Silent,
			},
			wantErr:     true,
			errContains: "database connection failed after 2 attempts",
			validate: func(t *testing.T, db *gorm.DB) {
				assert.Nil(t, db)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			db, err := postgres.ConnectDB(ctx, tt.config)

			if tt.wantErr {
				assert.Error(t, err, "Expected an error but got none")
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				assert.Nil(t, db, "Expected db to be nil on error")
				return
			}

			require.NoError(t, err, "Expected no error but got: %v", err)
			require.NotNil(t, db, "Expected db to be non-nil")
			if tt.validate != nil {
				tt.validate(t, db)
			}
			sqlDB, err := db.DB()
			if err == nil {
				sqlDB.Close()
			}
		})
	}
}

// setupTestDB returns a fresh DB connection and context with automatic cleanup.
// Each test gets its own connection to avoid connection pool issues.
func setupTestDB(tb testing.TB) (*gorm.DB, context.Context) {
	tb.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	tb.Cleanup(cancel)

	testConfig := &postgres.Config{
		User:       "testuser",
		Password:   "testpass",
		Host:       "localhost",
		Port:       testPort,
		Database:   "publisher_test",
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		LogLevel:   logger.Silent,
	}

	db, err := postgres.ConnectDB(ctx, testConfig)
	require.NoError(tb, err)

	// Clean tables at the start of each test / benchmark
	for _, table := range []string{"published_posts", "contents", "connector_credentials"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			tb.Logf("Warning: Failed to clean %s table: %v", table, err)
		}
	}

	tb.Cleanup(func() {
		closeTestDB(db)
	})

	return db, ctx
}

// closeTestDB closes a DB connection
func closeTestDB(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if sqlDB != nil {
		sqlDB.Close()
	}
}
