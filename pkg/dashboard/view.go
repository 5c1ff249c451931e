package dashboard

import (
	"context"
	"fmt"
	"sync"

	"opensacco-client/pkg/fetch"
	"opensacco-client/pkg/logging"
	"opensacco-client/pkg/metrics"
	"opensacco-client/pkg/portal"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecentLimit is how many transactions and loans the recent lists show.
const RecentLimit = 10

// Snapshot is everything the dashboard renders at one point in time.
type Snapshot struct {
	Summary            Summary              `json:"summary"`
	RecentTransactions []portal.Transaction `json:"recent_transactions"`
	RecentLoans        []portal.Loan        `json:"recent_loans"`
	// Loading is true while any collection is still loading.
	Loading bool `json:"loading"`
	// Errors maps a collection name to its load error message.
	Errors map[string]string `json:"errors,omitempty"`
}

// View owns the four dashboard loaders. Each collection is fetched once per
// Open and shared between the summary and the recent lists.
type View struct {
	customers    *fetch.Loader[portal.Customer]
	accounts     *fetch.Loader[portal.Account]
	loans        *fetch.Loader[portal.Loan]
	transactions *fetch.Loader[portal.Transaction]

	logger *logging.Logger

	mu       sync.Mutex
	onUpdate []func(Snapshot)
}

// ViewOption customizes a View.
type ViewOption func(*viewOptions)

type viewOptions struct {
	metrics  metrics.MetricsCollector
	onUpdate []func(Snapshot)
}

// WithMetrics records every collection load.
func WithMetrics(m metrics.MetricsCollector) ViewOption {
	return func(o *viewOptions) { o.metrics = m }
}

// OnUpdate registers fn to receive a fresh snapshot whenever a collection settles.
func OnUpdate(fn func(Snapshot)) ViewOption {
	return func(o *viewOptions) { o.onUpdate = append(o.onUpdate, fn) }
}

// NewView builds a dashboard view. Nothing is fetched until Open.
func NewView(getter fetch.Getter, opts ...ViewOption) (*View, error) {
	o := viewOptions{metrics: metrics.NoOpCollector{}}
	for _, opt := range opts {
		opt(&o)
	}

	v := &View{
		logger:   logging.Global().Named("dashboard"),
		onUpdate: o.onUpdate,
	}

	var err error
	if v.customers, err = fetch.NewLoader[portal.Customer](getter, portal.CollectionCustomers,
		fetch.WithMetrics[portal.Customer](o.metrics),
		fetch.OnChange(func(fetch.State[portal.Customer]) { v.changed() }),
	); err != nil {
		return nil, err
	}
	if v.accounts, err = fetch.NewLoader[portal.Account](getter, portal.CollectionAccounts,
		fetch.WithMetrics[portal.Account](o.metrics),
		fetch.OnChange(func(fetch.State[portal.Account]) { v.changed() }),
	); err != nil {
		return nil, err
	}
	if v.loans, err = fetch.NewLoader[portal.Loan](getter, portal.CollectionLoans,
		fetch.WithMetrics[portal.Loan](o.metrics),
		fetch.OnChange(func(fetch.State[portal.Loan]) { v.changed() }),
	); err != nil {
		return nil, err
	}
	if v.transactions, err = fetch.NewLoader[portal.Transaction](getter, portal.CollectionTransactions,
		fetch.WithMetrics[portal.Transaction](o.metrics),
		fetch.OnChange(func(fetch.State[portal.Transaction]) { v.changed() }),
	); err != nil {
		return nil, err
	}

	return v, nil
}

// Open starts all four loads, bound to ctx. Cancel ctx to close the view.
func (v *View) Open(ctx context.Context) {
	v.logger.Debug("opening dashboard")
	v.customers.Start(ctx)
	v.accounts.Start(ctx)
	v.loans.Start(ctx)
	v.transactions.Start(ctx)
}

// Snapshot recomputes the dashboard from the current loader states.
func (v *View) Snapshot() Snapshot {
	cs := v.customers.State()
	as := v.accounts.State()
	ls := v.loans.State()
	ts := v.transactions.State()

	snap := Snapshot{
		Summary: Summarize(Collections{
			Customers:    cs.Data,
			Accounts:     as.Data,
			Loans:        ls.Data,
			Transactions: ts.Data,
		}),
		RecentTransactions: head(ts.Data, RecentLimit),
		RecentLoans:        head(ls.Data, RecentLimit),
		Loading:            cs.Loading || as.Loading || ls.Loading || ts.Loading,
	}

	for name, err := range map[string]error{
		portal.CollectionCustomers:    cs.Err,
		portal.CollectionAccounts:     as.Err,
		portal.CollectionLoans:        ls.Err,
		portal.CollectionTransactions: ts.Err,
	} {
		if err == nil {
			continue
		}
		if snap.Errors == nil {
			snap.Errors = make(map[string]string)
		}
		snap.Errors[name] = err.Error()
	}

	return snap
}

// Wait blocks until every collection has settled or ctx ends. Load errors do
// not fail Wait; they are reported in the snapshot.
func (v *View) Wait(ctx context.Context) (Snapshot, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := v.customers.Wait(gctx); return err })
	g.Go(func() error { _, err := v.accounts.Wait(gctx); return err })
	g.Go(func() error { _, err := v.loans.Wait(gctx); return err })
	g.Go(func() error { _, err := v.transactions.Wait(gctx); return err })

	if err := g.Wait(); err != nil {
		return v.Snapshot(), fmt.Errorf("dashboard: %w", err)
	}
	return v.Snapshot(), nil
}

// Err joins the load errors of all collections, or returns nil.
func (v *View) Err() error {
	return multierr.Combine(
		v.customers.State().Err,
		v.accounts.State().Err,
		v.loans.State().Err,
		v.transactions.State().Err,
	)
}

func (v *View) changed() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.onUpdate) == 0 {
		return
	}
	snap := v.Snapshot()
	v.logger.Debug("dashboard updated",
		zap.Bool("loading", snap.Loading),
		zap.Int("customers", snap.Summary.TotalCustomers),
	)
	for _, fn := range v.onUpdate {
		fn(snap)
	}
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
