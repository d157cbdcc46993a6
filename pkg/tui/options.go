package tui

import (
	"os"

	"github.com/goliatone/go-leadform/components/localities"
)

// Theme captures optional prefixes the runner puts in front of messages.
type Theme struct {
	StepPrefix  string
	InfoPrefix  string
	ErrorPrefix string
}

// DefaultTheme is used when no theme is configured.
var DefaultTheme = Theme{StepPrefix: "==>", InfoPrefix: "i", ErrorPrefix: "!"}

// Suggester lists communes starting with a prefix.
type Suggester interface {
	Suggestions(prefix string, limit int) []localities.Entry
}

// Option configures the Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver used by the runner.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithSuggester enables commune hints after an unknown answer.
func WithSuggester(s Suggester) Option {
	return func(r *Runner) {
		r.suggester = s
	}
}

// WithReadFile replaces how attachment paths are read.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(r *Runner) {
		if fn != nil {
			r.readFile = fn
		}
	}
}

func defaultReadFile(path string) ([]byte, error) { return os.ReadFile(path) }
