//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dtroode/gophfeed/internal/model"
	repo "github.com/dtroode/gophfeed/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "gophfeed_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/gophfeed_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestSnapshotRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	sr := repo.NewSnapshotRepository(conn.DB())
	id := uuid.NewString()

	snap := model.SessionSnapshot{
		ID:         id,
		State:      model.StateAuthenticated,
		Credential: model.Credential{IDToken: "id", RefreshToken: "rt"},
		Profile:    &model.Profile{ID: "u1", Username: "alice", DisplayName: "Alice"},
		UpdatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, sr.Save(ctx, snap))

	got, err := sr.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, snap.State, got.State)
	require.Equal(t, snap.Credential, got.Credential)
	require.Equal(t, "alice", got.Profile.Username)

	snap.State = model.StateRegistrationRequired
	snap.Profile = nil
	require.NoError(t, sr.Save(ctx, snap))

	got, err = sr.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.StateRegistrationRequired, got.State)
	require.Nil(t, got.Profile)

	require.NoError(t, sr.Delete(ctx, id))
	_, err = sr.Get(ctx, id)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestSnapshotRepository_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	sr := repo.NewSnapshotRepository(conn.DB())
	old := model.SessionSnapshot{ID: uuid.NewString(), State: model.StateUnauthenticated, UpdatedAt: time.Now().Add(-2 * time.Hour)}
	fresh := model.SessionSnapshot{ID: uuid.NewString(), State: model.StateUnauthenticated, UpdatedAt: time.Now()}
	require.NoError(t, sr.Save(ctx, old))
	require.NoError(t, sr.Save(ctx, fresh))

	n, err := sr.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, int64(1))

	_, err = sr.Get(ctx, old.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = sr.Get(ctx, fresh.ID)
	require.NoError(t, err)
}
