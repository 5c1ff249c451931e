package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"opensacco-client/pkg/api"
	"opensacco-client/pkg/dashboard"
	"opensacco-client/pkg/fetch"
	"opensacco-client/pkg/portal"
	"opensacco-client/pkg/profile"
	"opensacco-client/pkg/render"
)

func init() {
	register(command{name: "dashboard", usage: "show totals and recent activity", run: runDashboard})
	register(command{name: "loans", usage: "list loans [-account filter]", run: runLoans})
	register(command{name: "transactions", usage: "list transactions [-account filter]", run: runTransactions})
	register(command{name: "customers", usage: "list customers", run: runCustomers})
	register(command{name: "accounts", usage: "list accounts", run: runAccounts})
	register(command{name: "profile", usage: "show your profile", run: runProfile})
	register(command{name: "profile-update", usage: "change username, email or image", run: runProfileUpdate})
	register(command{name: "serve", usage: "serve the dashboard as JSON on a local address", run: runServe})
}

func runDashboard(ctx context.Context, a *app, args []string) error {
	view, err := dashboard.NewView(a.client, dashboard.WithMetrics(a.metrics))
	if err != nil {
		return err
	}
	view.Open(ctx)

	snap, err := view.Wait(ctx)
	if err != nil {
		return err
	}
	return render.Dashboard(a.stdout, snap)
}

func accountFilter(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	account := fs.String("account", "", "only rows whose account contains this text")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *account, nil
}

func runLoans(ctx context.Context, a *app, args []string) error {
	filter, err := accountFilter("loans", args)
	if err != nil {
		return err
	}
	loans, err := fetch.Collection[portal.Loan](ctx, a.client, portal.CollectionLoans)
	if err != nil {
		return err
	}
	return render.Loans(a.stdout, render.FilterLoans(loans, filter))
}

func runTransactions(ctx context.Context, a *app, args []string) error {
	filter, err := accountFilter("transactions", args)
	if err != nil {
		return err
	}
	txs, err := fetch.Collection[portal.Transaction](ctx, a.client, portal.CollectionTransactions)
	if err != nil {
		return err
	}
	return render.Transactions(a.stdout, render.FilterTransactions(txs, filter))
}

func runCustomers(ctx context.Context, a *app, args []string) error {
	customers, err := fetch.Collection[portal.Customer](ctx, a.client, portal.CollectionCustomers)
	if err != nil {
		return err
	}
	return render.Customers(a.stdout, customers)
}

func runAccounts(ctx context.Context, a *app, args []string) error {
	accounts, err := fetch.Collection[portal.Account](ctx, a.client, portal.CollectionAccounts)
	if err != nil {
		return err
	}
	return render.Accounts(a.stdout, accounts)
}

func runProfile(ctx context.Context, a *app, args []string) error {
	u, err := profile.NewService(a.client).Load(ctx)
	if err != nil {
		return err
	}
	return render.Profile(a.stdout, u, profile.ImageURL(a.client.BaseURL(), u.Profile.ProfileImage))
}

func runProfileUpdate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("profile-update", flag.ContinueOnError)
	username := fs.String("username", "", "new username")
	email := fs.String("email", "", "new email address")
	image := fs.String("image", "", "path to a new profile image")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc := profile.NewService(a.client)
	current, err := svc.Load(ctx)
	if err != nil {
		return err
	}

	form := profile.FormFor(current)
	if *username != "" {
		form.Username = *username
	}
	if *email != "" {
		form.Email = *email
	}
	if *image != "" {
		preview, err := form.SelectImageFile(*image)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stderr, "image: %s (%s, %d bytes)\n", preview.Name, preview.MIME, preview.Size)
	}

	updated, err := svc.Update(ctx, form)
	var ve *portal.ValidationError
	if errors.As(err, &ve) {
		for _, msg := range ve.Messages() {
			fmt.Fprintln(a.stderr, msg)
		}
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stderr, "Profile updated successfully")
	if updated.Username == "" {
		return nil
	}
	return render.Profile(a.stdout, updated, profile.ImageURL(a.client.BaseURL(), updated.Profile.ProfileImage))
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.Server.Address, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := api.DefaultServerConfig()
	cfg.Address = *addr
	cfg.ReadTimeout = a.cfg.Server.ReadTimeout
	cfg.WriteTimeout = a.cfg.Server.WriteTimeout

	server := api.NewServer(a.client, a.metrics, cfg,
		api.WithGatherer(a.registry),
		api.WithBreaker(a.client.Breaker()),
	)
	if err := server.Start(); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "serving on %s, press Ctrl+C to stop\n", *addr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}
