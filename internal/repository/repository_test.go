package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"pokeguide-backend/internal/database"
	"pokeguide-backend/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Integration tests run against a throwaway postgres:16-alpine container:
//
//	GO_TEST_INTEGRATION=1 go test ./internal/repository -count=1
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	// the listening port can open before initdb finishes
	require.Eventually(t, func() bool {
		return database.Migrate(dsn, "up") == nil
	}, 30*time.Second, 500*time.Millisecond)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedUser(t *testing.T, repo *UserRepository, email string) *model.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &model.User{
		ID:           uuid.NewString(),
		Name:         "Ash",
		Email:        email,
		PasswordHash: "hash",
		Role:         model.RolePlayer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestIntegration_Users(t *testing.T) {
	pool := startPostgres(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	u := seedUser(t, repo, "ash@pallet.town")

	got, err := repo.GetByEmail(ctx, "ash@pallet.town")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, model.RolePlayer, got.Role)

	err = repo.Create(ctx, &model.User{
		ID: uuid.NewString(), Name: "Gary", Email: "ash@pallet.town", PasswordHash: "x",
		Role: model.RolePlayer, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	require.ErrorIs(t, err, ErrAlreadyExists)

	updated, err := repo.UpdateRole(ctx, u.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)

	_, err = repo.GetByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)

	count, err := repo.CountTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIntegration_RefreshTokens(t *testing.T) {
	pool := startPostgres(t)
	users := NewUserRepository(pool)
	sessions := NewSessionRepository(pool)
	ctx := context.Background()

	u := seedUser(t, users, "misty@cerulean.city")
	now := time.Now().UTC()

	require.NoError(t, sessions.Store(ctx, &model.RefreshToken{Token: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, sessions.Store(ctx, &model.RefreshToken{Token: "stale", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}))

	active, err := sessions.CountActive(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, active)

	t.Run("consume is single use", func(t *testing.T) {
		rt, err := sessions.Consume(ctx, "live")
		require.NoError(t, err)
		assert.Equal(t, u.ID, rt.UserID)

		_, err = sessions.Consume(ctx, "live")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, sessions.Delete(ctx, "missing"))
	})

	t.Run("delete expired", func(t *testing.T) {
		n, err := sessions.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("delete all for user", func(t *testing.T) {
		require.NoError(t, sessions.Store(ctx, &model.RefreshToken{Token: "a", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
		require.NoError(t, sessions.Store(ctx, &model.RefreshToken{Token: "b", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
		n, err := sessions.DeleteAllForUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestIntegration_Pokedex(t *testing.T) {
	pool := startPostgres(t)
	repo := NewPokedexRepository(pool)
	ctx := context.Background()

	geodude, err := repo.GetPokemonByName(ctx, "geodude")
	require.NoError(t, err)
	assert.Equal(t, "Geodude", geodude.Name)
	assert.Equal(t, []string{"Rock", "Ground"}, geodude.Types)
	assert.Equal(t, 100, geodude.Stats.Defence)

	move, err := repo.GetMoveByName(ctx, "Thunderbolt")
	require.NoError(t, err)
	assert.Equal(t, "thunderbolt", move.Code)
	assert.Equal(t, model.CategorySpecial, move.Category)
	require.NotNil(t, move.Power)
	assert.Equal(t, 90, *move.Power)

	growl, err := repo.GetMoveByName(ctx, "growl")
	require.NoError(t, err)
	assert.Nil(t, growl.Power)

	chart, err := repo.GetTypeChart(ctx, "electric")
	require.NoError(t, err)
	assert.Contains(t, chart.Strengths, "Water")
	assert.Contains(t, chart.Weaknesses, "Ground")

	known, err := repo.KnowsMove(ctx, 25, "thunderbolt")
	require.NoError(t, err)
	assert.True(t, known)

	known, err = repo.KnowsMove(ctx, 74, "thunderbolt")
	require.NoError(t, err)
	assert.False(t, known)

	_, err = repo.GetPokemonByName(ctx, "Missingno")
	require.ErrorIs(t, err, ErrNotFound)
}
