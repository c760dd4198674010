package bybit

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

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "spot", r.URL.Query().Get("category"))
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchBook(t *testing.T) {
	srv := serve(t, `{"retCode":0,"retMsg":"OK","result":{"s":"ETHUSDT","b":[["2000","1.5"]],"a":[["2001","2"],["2000.5","0.5"]],"ts":1700000000000}}`)

	a := New(source.Options{BaseURL: srv.URL})
	snap, err := a.FetchBook(context.Background(), "ETH-USDT", 50)
	require.NoError(t, err)

	assert.Equal(t, "bybit", snap.SourceID)
	require.Len(t, snap.Asks, 2)
	assert.Equal(t, "2000.5", snap.Asks[0].Price.String())
	assert.Equal(t, int64(1700000000000), snap.CapturedAt.UnixMilli())
}

func TestFetchBookRetCode(t *testing.T) {
	srv := serve(t, `{"retCode":10001,"retMsg":"params error","result":{}}`)

	a := New(source.Options{BaseURL: srv.URL})
	_, err := a.FetchBook(context.Background(), "ETH-USDT", 50)

	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.FetchProtocol, fe.Kind)
}
