package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestFetcher_RetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(toyotaCSV))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 3, time.Millisecond, time.Millisecond, zaptest.NewLogger(t))
	f.sleep = noSleep
	l := NewLoader(f, zaptest.NewLogger(t))

	tbl, err := l.Load(context.Background(), srv.URL+"/toyota.csv?raw=1", Options{})
	require.NoError(t, err)
	assert.Len(t, tbl.Records, 3)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 4, time.Millisecond, time.Millisecond, nil)
	f.sleep = noSleep

	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "404")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetcher_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 2, time.Millisecond, time.Millisecond, nil)
	f.sleep = noSleep

	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetcher_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFetcher(0, 0, 0, 0, nil).Fetch(ctx, "http://127.0.0.1:1/toyota.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsURLAndSourceExt(t *testing.T) {
	assert.True(t, IsURL("HTTPS://example.com/toyota.csv"))
	assert.False(t, IsURL("/tmp/toyota.csv"))
	assert.Equal(t, ".xlsx", sourceExt("https://example.com/data/toyota.xlsx?dl=1"))
	assert.Equal(t, ".csv", sourceExt("data/TOYOTA.CSV"))
}
