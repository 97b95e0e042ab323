package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"valwatch/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHenrikClient(server *httptest.Server) *HenrikClient {
	client := NewHenrikClient(server.URL+"/", "secret-key", 0)
	client.retryDelay = time.Millisecond
	return client
}

func TestHenrikClient_FetchRecentMatches(t *testing.T) {
	t.Run("returns raw payloads", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/valorant/v3/by-puuid/matches/eu/abc-123", r.URL.Path)
			assert.Equal(t, "secret-key", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":200,"data":[{"metadata":{"matchid":"m1"}},{"metadata":{"matchid":"m2"}}]}`))
		}))
		defer server.Close()

		matches, err := newTestHenrikClient(server).FetchRecentMatches(context.Background(), "eu", "abc-123")
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.JSONEq(t, `{"metadata":{"matchid":"m1"}}`, string(matches[0]))
	})

	t.Run("non-success status is source unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"errors":[{"message":"riot down"}]}`))
		}))
		defer server.Close()

		_, err := newTestHenrikClient(server).FetchRecentMatches(context.Background(), "na", "p")
		require.Error(t, err)
		assert.True(t, entities.IsSourceUnavailable(err))

		var sue *entities.SourceUnavailableError
		require.ErrorAs(t, err, &sue)
		assert.Equal(t, http.StatusServiceUnavailable, sue.Status)
		assert.Contains(t, sue.Body, "riot down")
	})

	t.Run("retries once after 429", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte(`{"status":200,"data":[]}`))
		}))
		defer server.Close()

		matches, err := newTestHenrikClient(server).FetchRecentMatches(context.Background(), "na", "p")
		require.NoError(t, err)
		assert.Empty(t, matches)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("second 429 is source unavailable", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := newTestHenrikClient(server).FetchRecentMatches(context.Background(), "na", "p")
		assert.True(t, entities.IsSourceUnavailable(err))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":200,"data":[]}`))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestHenrikClient(server).FetchRecentMatches(ctx, "na", "p")
		require.Error(t, err)
		assert.False(t, entities.IsSourceUnavailable(err))
	})
}

func TestHenrikClient_ResolveAccount(t *testing.T) {
	t.Run("resolves riot id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/valorant/v1/account/Tenz Fan/0001", r.URL.Path)
			_, _ = w.Write([]byte(`{"status":200,"data":{"puuid":"p-1","region":"NA","name":"Tenz Fan","tag":"0001"}}`))
		}))
		defer server.Close()

		ref, err := newTestHenrikClient(server).ResolveAccount(context.Background(), "Tenz Fan", "0001")
		require.NoError(t, err)
		assert.Equal(t, &entities.ExternalRef{Region: "na", PUUID: "p-1", Name: "Tenz Fan", Tag: "0001"}, ref)
	})

	t.Run("unknown account", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestHenrikClient(server).ResolveAccount(context.Background(), "ghost", "0000")
		assert.True(t, entities.IsSourceUnavailable(err))
	})

	t.Run("incomplete payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":200,"data":{"name":"x","tag":"y"}}`))
		}))
		defer server.Close()

		_, err := newTestHenrikClient(server).ResolveAccount(context.Background(), "x", "y")
		assert.Error(t, err)
	})
}

func TestHenrikClient_SpacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":200,"data":[]}`))
	}))
	defer server.Close()

	client := NewHenrikClient(server.URL, "", 50*time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.FetchRecentMatches(context.Background(), "na", "p")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
