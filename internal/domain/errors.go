package domain

import "errors"

// Sentinel errors for every failure a run can end with. Callers wrap them
// with context and match with errors.Is.
var (
	ErrInvalidMode = errors.New("invalid mode")

	ErrSourceUnavailable = errors.New("stats source unavailable")
	ErrSourceMalformed   = errors.New("stats source response malformed")

	ErrSinkUnavailable  = errors.New("gist sink unavailable")
	ErrSinkUnauthorized = errors.New("gist sink rejected credentials")
	ErrSinkNotFound     = errors.New("gist not found")
)
