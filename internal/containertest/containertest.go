// Package containertest starts throwaway backing stores for integration tests.
package containertest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	pgUser = "postgres"
	pgPass = "postgres"
	dbName = "phishlms"
)

// Postgres runs Postgres in a container, applies deploy/schema.sql and returns a pool. Everything is
// torn down with the test.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c := start(ctx, t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgUser,
			"POSTGRES_PASSWORD": pgPass,
			"POSTGRES_DB":       dbName,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	})

	addr, err := c.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(t, err)

	db, err := pgxpool.New(ctx, fmt.Sprintf("postgres://%s:%s@%s/%s", pgUser, pgPass, addr, dbName))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	schema, err := os.ReadFile(schemaPath(t))
	require.NoError(t, err)
	_, err = db.Exec(ctx, string(schema))
	require.NoError(t, err, "should apply schema")

	return db
}

// Mongo runs MongoDB in a container and returns a database handle.
func Mongo(t *testing.T) *mongo.Database {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c := start(ctx, t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(time.Minute),
	})

	addr, err := c.PortEndpoint(ctx, "27017/tcp", "mongodb")
	require.NoError(t, err)

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(addr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mc.Disconnect(context.Background()) })
	require.NoError(t, mc.Ping(ctx, nil), "should be able to ping mongo")

	return mc.Database(dbName)
}

func start(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "should start %s container", req.Image)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate %s container: %v", req.Image, err)
		}
	})

	return c
}

func schemaPath(t *testing.T) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok, "should locate containertest source")

	return filepath.Join(filepath.Dir(file), "..", "..", "deploy", "schema.sql")
}
