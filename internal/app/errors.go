package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrNilStore     = errors.New("store is nil")
	ErrInvalidUser  = errors.New("invalid user id")
	ErrBackpressure = errors.New("ingestion queue is full")
)
