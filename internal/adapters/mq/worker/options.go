// Package worker drains queued discovery events into the orchestrator.
package worker

import (
	"time"

	"github.com/cosnor/winged/pkg/logger"
)

// Option applies a configuration option to a Worker or Pool.
type Option func(*config)

type config struct {
	name        string
	logger      logger.Logger
	retries     int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	permanent   func(error) bool
	onFailure   FailureHook
}

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(lg logger.Logger) Option {
	return func(c *config) {
		if lg != nil {
			c.logger = lg
		}
	}
}

// WithRetries sets how many times a failed event is retried.
func WithRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the first retry delay and its ceiling. Delays double.
func WithBackoff(base, ceiling time.Duration) Option {
	return func(c *config) {
		if base > 0 {
			c.baseBackoff = base
		}
		if ceiling >= c.baseBackoff {
			c.maxBackoff = ceiling
		}
	}
}

// WithPermanent overrides which errors skip retrying.
func WithPermanent(fn func(error) bool) Option {
	return func(c *config) {
		if fn != nil {
			c.permanent = fn
		}
	}
}

// WithFailureHook is called once for every event that is given up on.
func WithFailureHook(fn FailureHook) Option {
	return func(c *config) {
		if fn != nil {
			c.onFailure = fn
		}
	}
}
