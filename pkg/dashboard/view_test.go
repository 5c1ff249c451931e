package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"opensacco-client/pkg/client"
	"opensacco-client/pkg/metrics/memory"
	"opensacco-client/pkg/portal"
)

func newAPI(t *testing.T, bodies map[string]string) (*client.Client, *sync.Map) {
	t.Helper()
	hits := &sync.Map{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.Trim(r.URL.Path, "/")
		n, _ := hits.LoadOrStore(name, new(int32))
		atomic.AddInt32(n.(*int32), 1)

		body, ok := bodies[name]
		if !ok {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	cfg := client.DefaultConfig()
	cfg.BaseURL = srv.URL
	c, err := client.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c, hits
}

func transactionsJSON(n int) string {
	parts := make([]string, n)
	for i := range parts {
		typ := "Deposit"
		if i%2 == 0 {
			typ = "Withdrawal"
		}
		parts[i] = fmt.Sprintf(`{"transaction_id":%d,"account":"A1","transaction_type":%q,"amount":"10.00","transaction_date":"2024-05-01"}`, i+1, typ)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestView_LoadsAndSummarizes(t *testing.T) {
	c, hits := newAPI(t, map[string]string{
		"customers":    `[{"id":1,"username":"a"},{"id":2,"username":"b"}]`,
		"accounts":     `[{"id":1,"balance":"100.00"},{"id":2,"balance":250}]`,
		"loans":        `[{"loan_id":1,"account":"A1","amount":"500","loan_status":"active"},{"loan_id":2,"account":"A2","amount":"300","loan_status":"closed"}]`,
		"transactions": transactionsJSON(12),
	})
	collector := memory.NewMemoryCollector()

	v, err := NewView(c, WithMetrics(collector))
	if err != nil {
		t.Fatal(err)
	}
	if !v.Snapshot().Loading {
		t.Error("Expected loading before Open")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v.Open(ctx)

	snap, err := v.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if snap.Loading {
		t.Error("Expected settled snapshot")
	}
	if len(snap.Errors) != 0 {
		t.Errorf("Unexpected errors %v", snap.Errors)
	}

	s := snap.Summary
	if s.TotalCustomers != 2 {
		t.Errorf("TotalCustomers = %d, want 2", s.TotalCustomers)
	}
	if !s.TotalAccountBalance.Equal(d("350")) {
		t.Errorf("TotalAccountBalance = %s, want 350", s.TotalAccountBalance)
	}
	if !s.TotalLoans.Equal(d("500")) {
		t.Errorf("TotalLoans = %s, want 500", s.TotalLoans)
	}
	if !s.TotalWithdrawals.Equal(d("60")) {
		t.Errorf("TotalWithdrawals = %s, want 60", s.TotalWithdrawals)
	}

	if len(snap.RecentTransactions) != RecentLimit {
		t.Errorf("Expected %d recent transactions, got %d", RecentLimit, len(snap.RecentTransactions))
	}
	if len(snap.RecentLoans) != 2 {
		t.Errorf("Expected 2 recent loans, got %d", len(snap.RecentLoans))
	}

	// Summary and recent lists share one request per collection.
	for _, name := range []string{"customers", "accounts", "loans", "transactions"} {
		n, ok := hits.Load(name)
		if !ok || atomic.LoadInt32(n.(*int32)) != 1 {
			t.Errorf("Expected exactly one request for %s", name)
		}
		if cm := collector.Collection(name); cm == nil || cm.Loads != 1 {
			t.Errorf("Expected one recorded load for %s, got %+v", name, cm)
		}
	}
}

func TestView_FailedCollectionCountsAsZero(t *testing.T) {
	c, _ := newAPI(t, map[string]string{
		"customers":    `[{"id":1}]`,
		"accounts":     `[{"id":1,"balance":"75"}]`,
		"transactions": `[]`,
	})

	v, err := NewView(c)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v.Open(ctx)

	snap, err := v.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if _, ok := snap.Errors[portal.CollectionLoans]; !ok {
		t.Errorf("Expected a loans error, got %v", snap.Errors)
	}
	if !snap.Summary.TotalLoans.IsZero() {
		t.Errorf("TotalLoans = %s, want 0", snap.Summary.TotalLoans)
	}
	if !snap.Summary.TotalAccountBalance.Equal(d("75")) {
		t.Errorf("TotalAccountBalance = %s, want 75", snap.Summary.TotalAccountBalance)
	}
	if v.Err() == nil {
		t.Error("Expected joined error")
	}
}

func TestView_OnUpdate(t *testing.T) {
	c, _ := newAPI(t, map[string]string{
		"customers":    `[]`,
		"accounts":     `[]`,
		"loans":        `[]`,
		"transactions": `[]`,
	})

	var mu sync.Mutex
	var updates []Snapshot
	v, err := NewView(c, OnUpdate(func(s Snapshot) {
		mu.Lock()
		updates = append(updates, s)
		mu.Unlock()
	}))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v.Open(ctx)
	if _, err := v.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 4 {
		t.Fatalf("Expected 4 updates, got %d", len(updates))
	}
	if updates[len(updates)-1].Loading {
		t.Error("Expected final update to be settled")
	}
}

func TestView_WaitCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	cfg := client.DefaultConfig()
	cfg.BaseURL = srv.URL
	c, _ := client.New(cfg, nil)

	v, _ := NewView(c)
	viewCtx, closeView := context.WithCancel(context.Background())
	v.Open(viewCtx)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := v.Wait(ctx); err == nil {
		t.Fatal("Expected Wait to fail when its context ends")
	}

	closeView()
	snap := v.Snapshot()
	if !snap.Loading {
		t.Error("Closed view must not commit late results")
	}
}
