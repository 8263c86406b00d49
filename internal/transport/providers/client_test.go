package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/event"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

func activated(t *testing.T, id uuid.UUID) *event.Event {
	t.Helper()
	ev, err := event.New(uuid.New(), event.KindActivated, id, time.Now(), nil)
	require.NoError(t, err)
	return &ev
}

func TestClient_Snapshot(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth = r.URL.Path, r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"providerId": "11111111-1111-1111-1111-111111111111",
			"name": "Clinic",
			"latitude": -23.5505,
			"longitude": -46.6333,
			"averageRating": 4.5,
			"subscriptionTier": "Gold",
			"serviceIds": ["aaaaaaaa-0000-0000-0000-000000000001"]
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "k"})
	require.NoError(t, err)

	snap, err := c.Snapshot(context.Background(), activated(t, id))
	require.NoError(t, err)

	assert.Equal(t, "/providers/"+id.String()+"/snapshot", gotPath)
	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, id, snap.ProviderID)
	require.NotNil(t, snap.Name)
	assert.Equal(t, "Clinic", *snap.Name)
	require.NotNil(t, snap.Tier)
	assert.Equal(t, provider.TierGold, *snap.Tier)
	require.NotNil(t, snap.Rating)
	assert.InDelta(t, 4.5, *snap.Rating, 1e-9)
	assert.Len(t, snap.ServiceIDs, 1)
	assert.Nil(t, snap.City, "absent fields stay unknown")
	assert.Nil(t, snap.TotalReviews)
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Snapshot(context.Background(), activated(t, uuid.New()))
	assert.True(t, errors.Is(err, domain.ErrProviderNotFound), "got %v", err)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "database down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Snapshot(context.Background(), activated(t, uuid.New()))
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrProviderNotFound))
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"subscriptionTier": "Diamond"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Snapshot(context.Background(), activated(t, uuid.New()))
	require.Error(t, err)
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Snapshot(ctx, activated(t, uuid.New()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://bad"} {
		_, err := NewClient(Config{BaseURL: u})
		assert.Error(t, err, u)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"providerId":"11111111-1111-1111-1111-111111111111","serviceIds":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, snap.ServiceIDs, "empty list means offers nothing")
	assert.Empty(t, snap.ServiceIDs)

	snap, err = DecodeSnapshot([]byte(`{"providerId":"11111111-1111-1111-1111-111111111111"}`))
	require.NoError(t, err)
	assert.Nil(t, snap.ServiceIDs, "absent list means unknown")

	_, err = DecodeSnapshot([]byte(`{"serviceIds":["nope"]}`))
	assert.Error(t, err)
}
