// Package auth implements the portal's sign in, sign up, password reset and
// logout flows. Each flow is a single request with a user-visible outcome;
// nothing is retried.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"opensacco-client/pkg/client"
	"opensacco-client/pkg/logging"
	"opensacco-client/pkg/metrics"
	"opensacco-client/pkg/portal"
	"opensacco-client/pkg/session"

	"go.uber.org/zap"
)

var api = portal.NewRoutePattern("api")

// API routes used by the flows.
var (
	routeToken        = api.Build("token")
	routeRegister     = api.Build("register")
	routeReset        = api.Build("password-reset")
	routeResetConfirm = api.Build("password-reset-confirm", "{uidb64}", "{token}")
	routeLogout       = api.Build("logout")
)

// Credentials are submitted by SignIn.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is submitted by SignUp.
type Registration struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required"`
}

// PasswordReset confirms a reset link.
type PasswordReset struct {
	UIDB64   string `json:"-" validate:"required"`
	Token    string `json:"-" validate:"required"`
	Password string `json:"password" validate:"required"`
	Confirm  string `json:"-"`
}

var formMessages = portal.Messages{
	"username":  "Username is required",
	"email":     "Invalid email address",
	"password":  "Password is required",
	"password2": "Password confirmation is required",
	"UIDB64":    "Reset link is incomplete",
	"Token":     "Reset link is incomplete",
}

type registerResponse struct {
	Tokens portal.Tokens `json:"tokens"`
}

// Service runs the auth flows against the API.
type Service struct {
	client    *client.Client
	session   *session.Session
	notifier  Notifier
	navigator Navigator
	metrics   metrics.MetricsCollector
	logger    *logging.Logger
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier sets where notices are shown.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithNavigator sets the navigation target.
func WithNavigator(n Navigator) Option {
	return func(s *Service) { s.navigator = n }
}

// WithMetrics sets the collector for auth outcomes.
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. The client must carry a session.
func New(c *client.Client, opts ...Option) (*Service, error) {
	if c == nil || c.Session() == nil {
		return nil, errors.New("auth: client has no session")
	}
	s := &Service{
		client:    c,
		session:   c.Session(),
		notifier:  discard{},
		navigator: discard{},
		metrics:   metrics.NoOpCollector{},
		logger:    logging.Global().Named("auth"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) record(op string, err error) {
	s.metrics.RecordAuth(op, err == nil)
	if err != nil {
		s.logger.Info("auth operation failed", zap.String("operation", op), zap.Error(err))
	}
}

// SignIn exchanges credentials for tokens. On success both tokens are stored
// and the user is sent to the dashboard; on failure nothing is stored.
func (s *Service) SignIn(ctx context.Context, creds Credentials) (err error) {
	defer func() { s.record("signin", err) }()

	resp, err := s.client.PostJSON(ctx, routeToken, "", creds)
	if err != nil {
		s.notifier.Notify(failure(MsgLoginFailed, 2*time.Second))
		return fmt.Errorf("auth: sign in: %w", err)
	}

	var tokens portal.Tokens
	if err := resp.DecodeJSON(&tokens); err != nil || !tokens.Valid() {
		s.notifier.Notify(failure(MsgLoginFailed, 2*time.Second))
		return fmt.Errorf("auth: sign in: %w: token pair missing", portal.ErrUnexpectedContent)
	}

	if err := s.session.SetTokens(ctx, tokens); err != nil {
		s.notifier.Notify(failure(MsgLoginFailed, 2*time.Second))
		return fmt.Errorf("auth: sign in: %w", err)
	}

	s.logger.Info("signed in", zap.String("username", creds.Username))
	s.notifier.Notify(success(MsgLoginSuccess, 2*time.Second))
	s.navigator.Navigate(RouteDashboard)
	return nil
}

// SignUp registers a user. Mismatched passwords are rejected before any
// request is made.
func (s *Service) SignUp(ctx context.Context, reg Registration) (err error) {
	defer func() { s.record("signup", err) }()

	if reg.Password != reg.Password2 {
		s.notifier.Notify(alert(MsgPasswordMismatch))
		return portal.ErrPasswordMismatch
	}
	if err := portal.ValidateForm(reg, formMessages); err != nil {
		s.notifyValidation(err, 2*time.Second)
		return err
	}

	resp, err := s.client.PostJSON(ctx, routeRegister, "", reg)
	if err != nil {
		s.notifier.Notify(failure(MsgSignUpFailed, 2*time.Second))
		return fmt.Errorf("auth: sign up: %w", err)
	}

	var body registerResponse
	if err := resp.DecodeJSON(&body); err != nil || !body.Tokens.Valid() {
		s.notifier.Notify(failure(MsgSignUpFailed, 2*time.Second))
		return fmt.Errorf("auth: sign up: %w: token pair missing", portal.ErrUnexpectedContent)
	}

	if err := s.session.SetTokens(ctx, body.Tokens); err != nil {
		s.notifier.Notify(failure(MsgSignUpFailed, 2*time.Second))
		return fmt.Errorf("auth: sign up: %w", err)
	}

	s.logger.Info("account created", zap.String("username", reg.Username))
	s.notifier.Notify(success(MsgSignUpSuccess, 2*time.Second))
	s.navigator.Navigate(RouteDashboard)
	return nil
}

// ForgotPassword asks the API to email a reset link. Tokens are untouched.
func (s *Service) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { s.record("forgot_password", err) }()

	if _, err := s.client.PostJSON(ctx, routeReset, "", map[string]string{"email": email}); err != nil {
		s.notifier.Notify(failure(MsgResetEmailFailed, 3*time.Second))
		return fmt.Errorf("auth: forgot password: %w", err)
	}

	s.notifier.Notify(success(MsgResetEmailSent, 4*time.Second))
	return nil
}

// ConfirmPasswordReset sets a new password using the uidb64 and token from
// the reset link. Mismatched passwords are rejected before any request.
func (s *Service) ConfirmPasswordReset(ctx context.Context, pr PasswordReset) (err error) {
	defer func() { s.record("password_reset_confirm", err) }()

	if pr.Password != pr.Confirm {
		s.notifier.Notify(failure(MsgPasswordMismatch, 3*time.Second))
		return portal.ErrPasswordMismatch
	}
	if err := portal.ValidateForm(pr, formMessages); err != nil {
		s.notifyValidation(err, 3*time.Second)
		return err
	}

	path := api.Build("password-reset-confirm", url.PathEscape(pr.UIDB64), url.PathEscape(pr.Token))
	if _, err := s.client.PostJSON(ctx, path, routeResetConfirm, map[string]string{"password": pr.Password}); err != nil {
		s.notifier.Notify(failure(MsgResetFailed, 5*time.Second))
		return fmt.Errorf("auth: reset password: %w", err)
	}

	s.notifier.Notify(success(MsgResetSuccess, 2*time.Second))
	s.navigator.Navigate(RouteLogin)
	return nil
}

// Logout ends the session. Any HTTP response from the API clears both tokens
// and sends the user to the login page. When the API cannot be reached an
// alert is raised and the tokens are kept.
func (s *Service) Logout(ctx context.Context) (err error) {
	defer func() { s.record("logout", err) }()

	_, err = s.client.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   routeLogout,
		Auth:   client.AuthOptional,
	})
	if err != nil && !errors.Is(err, portal.ErrUnexpectedStatus) {
		s.notifier.Notify(alert(MsgLogoutFailed))
		return fmt.Errorf("auth: logout: %w", err)
	}
	if err != nil {
		s.logger.Debug("logout returned non-2xx, clearing tokens anyway", zap.Int("status", portal.StatusCode(err)))
	}

	if err := s.session.Clear(ctx); err != nil {
		s.notifier.Notify(alert(MsgLogoutFailed))
		return fmt.Errorf("auth: logout: %w", err)
	}

	s.navigator.Navigate(RouteLogin)
	return nil
}

// Whoami reports the signed-in user from the stored access token.
func (s *Service) Whoami(ctx context.Context) (session.Claims, error) {
	return s.session.Claims(ctx, s.now())
}

func (s *Service) notifyValidation(err error, d time.Duration) {
	var ve *portal.ValidationError
	if errors.As(err, &ve) {
		s.notifier.Notify(failure(strings.Join(ve.Messages(), "\n"), d))
		return
	}
	s.notifier.Notify(failure(err.Error(), d))
}
