package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"opensacco-client/pkg/client"
	"opensacco-client/pkg/metrics/memory"
	"opensacco-client/pkg/portal"
)

// getterFunc adapts a function to Getter.
type getterFunc func(ctx context.Context, path string, auth client.Auth) (*client.Response, error)

func (f getterFunc) Get(ctx context.Context, path string, auth client.Auth) (*client.Response, error) {
	return f(ctx, path, auth)
}

func jsonResponse(body string) *client.Response {
	return &client.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

func waitState[T any](t *testing.T, l *Loader[T]) State[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := l.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	return s
}

func TestNewLoader_InvalidCollection(t *testing.T) {
	g := getterFunc(func(ctx context.Context, path string, auth client.Auth) (*client.Response, error) {
		return nil, nil
	})
	for _, name := range []string{"", "../secret", "/loans", "loans list"} {
		if _, err := NewLoader[portal.Loan](g, name); !errors.Is(err, portal.ErrInvalidCollection) {
			t.Errorf("Expected ErrInvalidCollection for %q, got %v", name, err)
		}
	}
}

func TestLoader_LoadingUntilSettled(t *testing.T) {
	release := make(chan struct{})
	g := getterFunc(func(ctx context.Context, path string, auth client.Auth) (*client.Response, error) {
		<-release
		return jsonResponse(`[{"loan_id":1,"account":"A1","amount":"500.00","loan_status":"active"}]`), nil
	})

	l, err := NewLoader[portal.Loan](g, portal.CollectionLoans)
	if err != nil {
		t.Fatal(err)
	}
	if s := l.State(); !s.Loading || len(s.Data) != 0 || s.Err != nil {
		t.Fatalf("Expected initial loading state, got %+v", s)
	}

	l.Start(context.Background())
	if !l.State().Loading {
		t.Error("Expected loading while request is in flight")
	}
	close(release)

	s := waitState(t, l)
	if s.Loading || s.Err != nil {
		t.Fatalf("Unexpected state %+v", s)
	}
	if len(s.Data) != 1 || s.Data[0].LoanID != "1" || !s.Data[0].IsActive() {
		t.Errorf("Unexpected data %+v", s.Data)
	}
}

func TestLoader_StartOnce(t *testing.T) {
	var calls int32
	g := getterFunc(func(ctx context.Context, path string, auth client.Auth) (*client.Response, error) {
		atomic.AddInt32(&calls, 1)
		if path != "/customers" {
			t.Errorf("Expected path /customers, got %s", path)
		}
		return jsonResponse(`[]`), nil
	})

	l, _ := NewLoader[portal.Customer](g, portal.CollectionCustomers)
	ctx := context.Background()
	l.Start(ctx)
	l.Start(ctx)
	waitState(t, l)
	l.Start(ctx)

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected exactly 1 request, got %d", n)
	}
}

func TestLoader_ErrorPolicy(t *testing.T) {
	tests := []struct {
		name         string
		resp         *client.Response
		err          error
		wantErr      bool
		wantDegraded bool
	}{
		{
			name:    "transport failure",
			err:     portal.ErrTransport,
			wantErr: true,
		},
		{
			name:    "non-2xx",
			resp:    jsonResponse(`{"detail":"boom"}`),
			err:     &portal.StatusError{Method: "GET", Route: "/accounts", StatusCode: 500},
			wantErr: true,
		},
		{
			name: "html body",
			resp: &client.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"text/html"}},
				Body:       []byte("<html></html>"),
			},
			wantDegraded: true,
		},
		{
			name:         "malformed json",
			resp:         jsonResponse(`[{"id":`),
			wantDegraded: true,
		},
		{
			name:         "object instead of list",
			resp:         jsonResponse(`{"results":[]}`),
			wantDegraded: true,
		},
		{
			name: "null body",
			resp: jsonResponse(`null`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := getterFunc(func(ctx context.Context, path string, auth client.Auth) (*client.Response, error) {
				return tt.resp, tt.err
			})
			collector := memory.NewMemoryCollector()
			l, _ := NewLoader[portal.Account](g, portal.CollectionAccounts, WithMetrics[portal.Account](collector))
			l.Start(context.Background())
			s := waitState(t, l)

			if (s.Err != nil) != tt.wantErr {
				t.Fatalf("Err = %v, wantErr %v", s.Err, tt.wantErr)
			}
			if s.Data == nil || len(s.Data) != 0 {
				t.Errorf("Expected empty non-nil data, got %#v", s.Data)
			}
			if s.Loading {
				t.Error("Expected settled state")
			}

			cm := collector.Collection(portal.CollectionAccounts)
			if tt.wantErr {
				if cm != nil {
					t.Errorf("Failed loads must not be recorded as fetches, got %+v", cm)
				}
				return
			}
			if cm == nil || cm.Loads != 1 {
				t.Fatalf("Expected one recorded load, got %+v", cm)
			}
			if got := cm.Degraded == 1; got != tt.wantDegraded {
				t.Errorf("Degraded = %d, want %v", cm.Degraded, tt.wantDegraded)
			}
		})
	}
}

func TestLoader_ErrorKeepsStatus(t *testing.T) {
	g := getterFunc(func(ctx context.Context, path string, auth client.Auth) (*client.Response, error) {
		return nil, &portal.StatusError{Method: "GET", Route: path, StatusCode: http.StatusForbidden}
	})
	l, _ := NewLoader[portal.Transaction](g, portal.CollectionTransactions)
	l.Start(context.Background())
	s := waitState(t, l)

	if portal.StatusCode(s.Err) != http.StatusForbidden {
		t.Errorf("Expected status 403 in error chain, got %v", s.Err)
	}
}

func TestLoader_CancelledViewDropsResult(t *testing.T) {
	started := make(chan struct{})
	g := getterFunc(func(ctx context.Context, path string, auth client.Auth) (*client.Response, error) {
		close(started)
		<-ctx.Done()
		// A late body arrives after the view is gone.
		return jsonResponse(`[{"id":1,"balance":"10"}]`), nil
	})

	var changes int32
	l, _ := NewLoader[portal.Account](g, portal.CollectionAccounts,
		OnChange(func(State[portal.Account]) { atomic.AddInt32(&changes, 1) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	<-started
	cancel()

	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loader did not finish after cancellation")
	}

	if n := atomic.LoadInt32(&changes); n != 0 {
		t.Errorf("Expected no state change after view closed, got %d", n)
	}
	if s := l.State(); !s.Loading || len(s.Data) != 0 {
		t.Errorf("Expected untouched state, got %+v", s)
	}
}

func TestLoader_OnChange(t *testing.T) {
	g := getterFunc(func(ctx context.Context, path string, auth client.Auth) (*client.Response, error) {
		return jsonResponse(`[{"id":1,"username":"jane"}]`), nil
	})

	got := make(chan State[portal.Customer], 1)
	l, _ := NewLoader[portal.Customer](g, portal.CollectionCustomers,
		OnChange(func(s State[portal.Customer]) { got <- s }),
	)
	l.Start(context.Background())

	select {
	case s := <-got:
		if s.Loading || len(s.Data) != 1 || s.Data[0].Username != "jane" {
			t.Errorf("Unexpected state %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange not called")
	}
}

func TestLoader_WaitHonoursContext(t *testing.T) {
	g := getterFunc(func(ctx context.Context, path string, auth client.Auth) (*client.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	viewCtx, closeView := context.WithCancel(context.Background())
	defer closeView()

	l, _ := NewLoader[portal.Loan](g, portal.CollectionLoans)
	l.Start(viewCtx)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestCollection_ThroughClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"transaction_id":9,"account":"A1","transaction_type":"Withdrawal","amount":40,"transaction_date":"2024-05-01"}]`))
	}))
	defer srv.Close()

	cfg := client.DefaultConfig()
	cfg.BaseURL = srv.URL
	c, err := client.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	txs, err := Collection[portal.Transaction](context.Background(), c, portal.CollectionTransactions)
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}
	if len(txs) != 1 || txs[0].Amount.String() != "40" {
		t.Errorf("Unexpected transactions %+v", txs)
	}

	if _, err := Collection[portal.Loan](context.Background(), c, "missing"); !errors.Is(err, portal.ErrUnexpectedStatus) {
		t.Errorf("Expected status error for 404, got %v", err)
	}
}
