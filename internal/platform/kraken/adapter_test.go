package kraken

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
	"github.com/alanyoungcy/liquidrouter/internal/source"
)

func TestFetchBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "XBTUSDT", r.URL.Query().Get("pair"))
		_, _ = w.Write([]byte(`{"error":[],"result":{"XBTUSDT":{"asks":[["50001.0","0.5",1700000000]],"bids":[["50000.0","1.25",1700000000],["49999.5","2",1700000001]]}}}`))
	}))
	defer srv.Close()

	snap, err := New(source.Options{BaseURL: srv.URL}).FetchBook(context.Background(), "BTC-USDT", 20)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 2)
	assert.Equal(t, "1.25", snap.Bids[0].Quantity.String())
	require.Len(t, snap.Asks, 1)
}

func TestFetchBookKrakenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":["EQuery:Unknown asset pair"]}`))
	}))
	defer srv.Close()

	_, err := New(source.Options{BaseURL: srv.URL}).FetchBook(context.Background(), "FOO-BAR", 20)
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.FetchProtocol, fe.Kind)
	assert.Contains(t, fe.Detail, "Unknown asset pair")
}
