package leaderboard

import "errors"

// Leaderboard errors.
var (
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidUser  = errors.New("user_id must be positive")
	ErrNilReader    = errors.New("leaderboard reader is nil")
)
