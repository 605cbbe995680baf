package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quotes", r.URL.Path)
		assert.Equal(t, "BTC-USD", r.URL.Query().Get("ticker"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ticker":"BTC-USD","open":100.5,"close":110.25,"previous_close":98}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	q, err := c.GetQuote(context.Background(), "BTC-USD")
	assert.NoError(t, err)
	assert.Equal(t, "BTC-USD", q.Ticker)
	assert.Equal(t, 100.5, q.Open)
	assert.Equal(t, 110.25, q.Close)
	assert.Equal(t, float64(98), q.PreviousClose)
}

func TestGetQuote_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetQuote(context.Background(), "BTC-USD")
	assert.Error(t, err)
}

func TestGetVenueMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/markets/v-123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"v-123","status":"settled","finalized":true,"outcome":"yes"}`))
	}))
	defer srv.Close()

	m, err := New(srv.URL).GetVenueMarket(context.Background(), "v-123")
	assert.NoError(t, err)
	assert.True(t, m.Finalized)
	assert.Equal(t, "yes", m.Outcome)
}

func TestGetVenueMarket_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetVenueMarket(context.Background(), "missing")
	assert.Error(t, err)
}
