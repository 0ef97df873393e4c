package integration

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"taprealm/internal/domain"
	"taprealm/internal/game"
	"taprealm/internal/migrations"
	"taprealm/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// openDB connects to DATABASE_URL and migrates it, or skips the test.
func openDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "connect db")
	t.Cleanup(db.Close)

	require.NoError(t, migrations.Up(ctx, db))
	return db
}

var tgSeq atomic.Int64

// uniqueTgID keeps runs against a shared database from colliding.
func uniqueTgID() int64 {
	return time.Now().UnixNano()/1000 + tgSeq.Add(1)
}

func createPlayer(t *testing.T, db *pgxpool.Pool) (*domain.User, game.PlayerState) {
	t.Helper()
	engine := game.NewEngine(game.StaticSettings(game.DefaultSettings()))
	u := &domain.User{TgID: uniqueTgID(), Username: "it", FirstName: "Integration"}
	st := engine.NewPlayer(0, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), u, st))
	st.UserID = u.ID
	return u, st
}

func createSquad(t *testing.T, db *pgxpool.Pool) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO squads (name) VALUES ($1) RETURNING id`,
		fmt.Sprintf("squad-%d", uniqueTgID()),
	).Scan(&id)
	require.NoError(t, err)
	return id
}
