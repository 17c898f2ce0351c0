package users

import "fmt"

// Logger is the minimal logging surface used across the package. Messages take
// structured key/value pairs the way go-logger does.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds token issuing options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenTTL() int
	GetRefreshTokenTTL() int
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Printf("[ERR] USERS "+newline(msg), args...)
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Printf("[WRN] USERS "+newline(msg), args...)
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Printf("[INF] USERS "+newline(msg), args...)
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Printf("[DBG] USERS "+newline(msg), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
