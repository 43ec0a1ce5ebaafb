package leaderboard

import "github.com/cosnor/winged/pkg/logger"

// Option configures a Service.
type Option func(*Service)

// WithCache puts a faster Reader in front of the store. Cache errors fall
// back to the store.
func WithCache(r Reader) Option {
	return func(s *Service) {
		s.cache = r
	}
}

// WithMaxLimit caps the leaderboard size a caller may ask for.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}
