package auth

import (
	"time"
)

// Level is the severity of a Notice.
type Level int

const (
	// LevelSuccess is a transient confirmation.
	LevelSuccess Level = iota
	// LevelError is a transient failure message.
	LevelError
	// LevelAlert blocks until acknowledged.
	LevelAlert
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	case LevelAlert:
		return "alert"
	default:
		return "unknown"
	}
}

// Notice is a user-visible outcome of an operation.
type Notice struct {
	Level   Level
	Message string
	// AutoClose is how long a transient notice stays visible. Zero for alerts.
	AutoClose time.Duration
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(route string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(string)

// Navigate calls f(route).
func (f NavigatorFunc) Navigate(route string) { f(route) }

type discard struct{}

func (discard) Notify(Notice)   {}
func (discard) Navigate(string) {}

// Routes the auth flows navigate to.
const (
	RouteDashboard      = "/"
	RouteLogin          = "/login"
	RouteForgotPassword = "/forgot-password"
)

// User-visible messages.
const (
	MsgLoginSuccess     = "Login successful"
	MsgLoginFailed      = "Invalid credentials"
	MsgPasswordMismatch = "Passwords do not match"
	MsgSignUpSuccess    = "Account created successfully"
	MsgSignUpFailed     = "Error creating account"
	MsgResetEmailSent   = "Password reset email sent successfully. Please check your email"
	MsgResetEmailFailed = "Error sending password reset email. Enter valid email"
	MsgResetSuccess     = "Password reset successful"
	MsgResetFailed      = "Error resetting password. Please request for a new reset link"
	MsgLogoutFailed     = "An error occurred while logging out. Please try again."
)

func success(msg string, d time.Duration) Notice {
	return Notice{Level: LevelSuccess, Message: msg, AutoClose: d}
}

func failure(msg string, d time.Duration) Notice {
	return Notice{Level: LevelError, Message: msg, AutoClose: d}
}

func alert(msg string) Notice {
	return Notice{Level: LevelAlert, Message: msg}
}
