package repository_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"promptbot/internal/infrastructure"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testPool *pgxpool.Pool

// TestMain starts a Postgres container for the package. Without a container
// runtime, or under -short, the database tests skip.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := startPostgres(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("postgres container unavailable, database tests will skip")
		os.Exit(m.Run())
	}

	code := m.Run()

	if testPool != nil {
		testPool.Close()
	}
	_ = container.Terminate(context.Background())
	os.Exit(code)
}

func startPostgres(ctx context.Context) (testcontainers.Container, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "root",
				"POSTGRES_DB":       "promptbot",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	dsn := fmt.Sprintf("postgres://postgres:root@%s:%s/promptbot?sslmode=disable", host, port.Port())
	client, err := infrastructure.NewPostgresClient(ctx, dsn, false)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	testPool = client.Pool
	return container, nil
}

// requireDB skips the test when no database is available and truncates all tables otherwise.
func requireDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testPool == nil {
		t.Skip("postgres not available")
	}
	_, err := testPool.Exec(context.Background(),
		"TRUNCATE users, prompts, conversation_history, processed_messages, message_usage RESTART IDENTITY")
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return testPool
}
