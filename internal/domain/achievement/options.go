package achievement

import "github.com/cosnor/winged/pkg/logger"

// Option configures a Catalog.
type Option func(*Catalog)

// WithStrictTypes makes Bootstrap reject definitions whose type the
// evaluator does not understand. Off by default.
func WithStrictTypes(strict bool) Option {
	return func(c *Catalog) {
		c.strict = strict
	}
}

// WithLogger sets the catalog logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}
