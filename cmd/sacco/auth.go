package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"opensacco-client/pkg/auth"

	"go.uber.org/zap"
)

func init() {
	register(command{name: "signin", usage: "sign in and store the session tokens", run: runSignIn})
	register(command{name: "signup", usage: "create a staff account", run: runSignUp})
	register(command{name: "forgot-password", usage: "request a password reset email", run: runForgotPassword})
	register(command{name: "reset-password", usage: "set a new password from a reset link", run: runResetPassword})
	register(command{name: "logout", usage: "end the session", run: runLogout})
	register(command{name: "whoami", usage: "show the signed-in user from the stored token", run: runWhoami})
}

// terminal prints notices to stderr and reports navigation.
type terminal struct {
	a *app
}

func (t terminal) Notify(n auth.Notice) {
	fmt.Fprintf(t.a.stderr, "[%s] %s\n", n.Level, n.Message)
}

func (t terminal) Navigate(route string) {
	t.a.logger.Debug("navigate", zap.String("route", route))
	fmt.Fprintf(t.a.stderr, "next: %s\n", route)
}

func (a *app) authService() (*auth.Service, error) {
	term := terminal{a: a}
	return auth.New(a.client,
		auth.WithNotifier(term),
		auth.WithNavigator(term),
		auth.WithMetrics(a.metrics),
	)
}

// prompt returns value, or reads a line from stdin when value is empty.
func (a *app) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(a.stderr, "%s: ", label)
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runSignIn(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("signin", flag.ContinueOnError)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := a.prompt("Password", *password)
	if err != nil {
		return err
	}

	svc, err := a.authService()
	if err != nil {
		return err
	}
	return svc.SignIn(ctx, auth.Credentials{Username: *username, Password: pw})
}

func runSignUp(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	var reg auth.Registration
	fs.StringVar(&reg.Username, "username", "", "username")
	fs.StringVar(&reg.Email, "email", "", "email address")
	fs.StringVar(&reg.Password, "password", "", "password")
	fs.StringVar(&reg.Password2, "password2", "", "password confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := a.authService()
	if err != nil {
		return err
	}
	return svc.SignUp(ctx, reg)
}

func runForgotPassword(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("forgot-password", flag.ContinueOnError)
	email := fs.String("email", "", "account email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := a.authService()
	if err != nil {
		return err
	}
	return svc.ForgotPassword(ctx, *email)
}

func runResetPassword(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	var pr auth.PasswordReset
	fs.StringVar(&pr.UIDB64, "uid", "", "uidb64 segment of the reset link")
	fs.StringVar(&pr.Token, "token", "", "token segment of the reset link")
	fs.StringVar(&pr.Password, "password", "", "new password")
	fs.StringVar(&pr.Confirm, "confirm", "", "new password again")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := a.authService()
	if err != nil {
		return err
	}
	return svc.ConfirmPasswordReset(ctx, pr)
}

func runLogout(ctx context.Context, a *app, args []string) error {
	svc, err := a.authService()
	if err != nil {
		return err
	}
	return svc.Logout(ctx)
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	svc, err := a.authService()
	if err != nil {
		return err
	}
	claims, err := svc.Whoami(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Username: %s\n", claims.Username)
	if claims.UserID != "" {
		fmt.Fprintf(a.stdout, "User ID:  %s\n", claims.UserID)
	}
	if !claims.ExpiresAt.IsZero() {
		fmt.Fprintf(a.stdout, "Expires:  %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}
