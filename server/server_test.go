package server_test

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"skystreak/db"
	"skystreak/models"
	"skystreak/server"
	"skystreak/streak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeedClient struct{}

func (stubFeedClient) AuthorFeedPage(ctx context.Context, handle string, cursor string, limit int64) (*models.FeedPage, error) {
	return &models.FeedPage{}, nil
}

func (stubFeedClient) ResolveHandle(ctx context.Context, handle string) (string, error) {
	return handle, nil
}

func newTestServer(t *testing.T) (*server.ServerConfig, *db.Store) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "streaks.db")
	require.NoError(t, db.Migrate(path))

	store, err := db.NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	broadcaster := server.NewBroadcaster()
	t.Cleanup(broadcaster.Shutdown)

	client := stubFeedClient{}
	index := streak.NewIndex(client)

	config := &server.ServerConfig{
		Store: store,
		Orchestrators: map[string]*streak.Orchestrator{
			"alice.bsky.social": streak.NewOrchestrator(
				"alice.bsky.social",
				client,
				index,
				streak.NewTodayChecker(client),
				streak.NewCalculator(index),
				store,
				broadcaster,
			),
		},
		Broadcaster: broadcaster,
	}

	return config, store
}

func TestHealthz(t *testing.T) {
	config, _ := newTestServer(t)
	app := server.Server(config)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestGetStreakUnknownHandle(t *testing.T) {
	config, _ := newTestServer(t)
	app := server.Server(config)

	resp, err := app.Test(httptest.NewRequest("GET", "/streak/eve.bsky.social", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestGetStreakReturnsStoredRecord(t *testing.T) {
	config, store := newTestServer(t)
	app := server.Server(config)

	require.NoError(t, store.Put(context.Background(), "alice.bsky.social", models.StreakRecord{
		CheckedAt: time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC),
		Count:     5,
	}))

	resp, err := app.Test(httptest.NewRequest("GET", "/streak/alice.bsky.social", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"count":5`)
	assert.Contains(t, string(body), `"refreshing":true`)
}

func TestRefreshAccepted(t *testing.T) {
	config, _ := newTestServer(t)
	app := server.Server(config)

	resp, err := app.Test(httptest.NewRequest("POST", "/streak/alice.bsky.social/refresh", nil))
	require.NoError(t, err)
	assert.Equal(t, 202, resp.StatusCode)
}

func TestRefreshUnknownHandle(t *testing.T) {
	config, _ := newTestServer(t)
	app := server.Server(config)

	resp, err := app.Test(httptest.NewRequest("POST", "/streak/eve.bsky.social/refresh", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
