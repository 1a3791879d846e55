package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestToETHCachesQuote(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/prices/ETH-USD/spot" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"amount":"2000.00","base":"ETH","currency":"USD"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, time.Minute)

	eth, err := c.ToETH(context.Background(), 5000)
	if err != nil {
		t.Fatal(err)
	}
	if eth.String() != "0.025" {
		t.Fatalf("expected 0.025 ETH, got %s", eth)
	}

	if _, err := c.ToETH(context.Background(), 100); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
}

func TestETHUSDUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, time.Minute)
	if _, err := c.ETHUSD(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestETHUSDSharesSlowFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, time.Minute)

	const callers = 5
	errs := make(chan error, callers)
	start := time.Now()
	for i := 0; i < callers; i++ {
		go func() {
			_, err := c.ToETH(context.Background(), 4999)
			errs <- err
		}()
	}
	for i := 0; i < callers; i++ {
		if err := <-errs; err == nil {
			t.Fatal("expected error")
		}
	}

	if took := time.Since(start); took > 600*time.Millisecond {
		t.Fatalf("callers waited on each other: %s", took)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}

	if _, err := c.ETHUSD(context.Background()); err == nil {
		t.Fatal("expected the failure to be remembered")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("failure was refetched, %d upstream calls", got)
	}
}

func TestETHUSDCallerCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"amount":"2000.00","base":"ETH","currency":"USD"}}`))
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, 5*time.Second, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.ETHUSD(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
