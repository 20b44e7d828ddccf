package catalog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"arcade/internal/cache"
	"arcade/internal/middleware"
	"arcade/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "count": 2,
  "next": "https://api.rawg.io/api/games?page=2",
  "results": [
    {"id": 3498, "name": "Grand Theft Auto V", "rating": 4.47, "released": "2013-09-17",
     "background_image": "https://media.rawg.io/gta5.jpg",
     "genres": [{"id": 4, "name": "Action"}, {"id": 3, "name": "Adventure"}]},
    {"id": 4200, "name": "Portal 2", "rating": 4.61, "released": "2011-04-18",
     "background_image": "https://media.rawg.io/portal2.jpg", "genres": []}
  ]
}`

const detailBody = `{
  "id": 4200, "name": "Portal 2", "rating": 4.61, "released": "2011-04-18",
  "background_image": "https://media.rawg.io/portal2.jpg",
  "description_raw": "Test subjects wanted.", "website": "http://www.thinkwithportals.com/",
  "metacritic": 95,
  "genres": [{"name": "Puzzle"}],
  "platforms": [{"platform": {"name": "PC"}}, {"platform": {"name": "Xbox 360"}}]
}`

func newUpstream(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"bad key"}`))
			return
		}
		_, _ = w.Write([]byte(searchBody))
	})
	mux.HandleFunc("/games/4200", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(detailBody))
	})
	mux.HandleFunc("/games/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found."}`))
	})
	mux.HandleFunc("/games/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_NotConfigured(t *testing.T) {
	c := New(Options{})
	assert.False(t, c.Enabled())

	_, err := c.Search(context.Background(), SearchParams{Search: "portal"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.Game(context.Background(), "4200")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_SearchMapsResults(t *testing.T) {
	var hits atomic.Int32
	srv := newUpstream(t, &hits)
	c := New(Options{APIKey: "test-key", BaseURL: srv.URL})

	page, err := c.Search(context.Background(), SearchParams{Ordering: "-added", PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Count)
	assert.True(t, page.Next)
	require.Len(t, page.Results, 2)

	gta := page.Results[0]
	assert.Equal(t, int64(3498), gta.ID)
	assert.Equal(t, "Grand Theft Auto V", gta.Name)
	assert.InDelta(t, 4.47, gta.Rating, 0.001)
	assert.Equal(t, "https://media.rawg.io/gta5.jpg", gta.ImageURL)
	assert.Equal(t, []string{"Action", "Adventure"}, gta.Genres)
	assert.NotNil(t, page.Results[1].Genres)
}

func TestClient_GameDetail(t *testing.T) {
	var hits atomic.Int32
	srv := newUpstream(t, &hits)
	c := New(Options{APIKey: "test-key", BaseURL: srv.URL})
	ctx := context.Background()

	game, err := c.Game(ctx, "4200")
	require.NoError(t, err)
	assert.Equal(t, "Portal 2", game.Name)
	assert.Equal(t, int64(95), game.Metacritic)
	assert.Equal(t, []string{"PC", "Xbox 360"}, game.Platforms)
	assert.Equal(t, []string{"Puzzle"}, game.Genres)

	_, err = c.Game(ctx, "missing")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = c.Game(ctx, "broken")
	assert.True(t, errors.Is(err, ErrUpstream))

	_, err = c.Game(ctx, "../admin")
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestClient_UpstreamAuthFailure(t *testing.T) {
	var hits atomic.Int32
	srv := newUpstream(t, &hits)
	c := New(Options{APIKey: "wrong", BaseURL: srv.URL})

	_, err := c.Search(context.Background(), SearchParams{})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_TransportErrorHidesAPIKey(t *testing.T) {
	var logs bytes.Buffer
	prev := middleware.Logger
	middleware.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	t.Cleanup(func() { middleware.Logger = prev })

	down := httptest.NewServer(http.NotFoundHandler())
	baseURL := down.URL
	down.Close()

	const secret = "SECRETKEY123"
	c := New(Options{APIKey: secret, BaseURL: baseURL})

	_, err := c.Search(context.Background(), SearchParams{Search: "portal"})
	require.ErrorIs(t, err, ErrUpstream)
	assert.NotContains(t, err.Error(), secret)
	assert.Contains(t, logs.String(), "catalog request failed")
	assert.NotContains(t, logs.String(), secret)
}

func TestClient_CachesResponses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	var hits atomic.Int32
	srv := newUpstream(t, &hits)
	c := New(Options{APIKey: "test-key", BaseURL: srv.URL})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		page, err := c.Search(ctx, SearchParams{Search: "portal"})
		require.NoError(t, err)
		require.Len(t, page.Results, 2)
	}
	assert.Equal(t, int32(1), hits.Load())

	_, err := c.Search(ctx, SearchParams{Search: "gta"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSearchParamsValues(t *testing.T) {
	v := SearchParams{Search: " zelda ", Genres: "action", Page: 3}.values()
	assert.Equal(t, "zelda", v.Get("search"))
	assert.Equal(t, "action", v.Get("genres"))
	assert.Equal(t, "20", v.Get("page_size"))
	assert.Equal(t, "3", v.Get("page"))
	assert.Empty(t, v.Get("ordering"))
}
