package prompt

import (
	"errors"

	"github.com/charmbracelet/log"
)

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrUnsupportedKind is returned for field kinds the session cannot prompt.
	ErrUnsupportedKind = errors.New("prompt: unsupported field kind")
)

// Option configures a Session.
type Option func(*Session)

// WithDriver overrides the prompt driver used by the session.
func WithDriver(driver Driver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxSubmitAttempts bounds how many times a failed submission sends the
// user back to the failing fields. Values below one are ignored.
func WithMaxSubmitAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}
