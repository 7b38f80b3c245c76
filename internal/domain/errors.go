package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrURLRequired is returned when the request carries no URL.
	ErrURLRequired = errors.New("url is required")
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid url format")
	// ErrBlockedDomain is returned for loopback and private-network hosts.
	ErrBlockedDomain = errors.New("domain not allowed")
	// ErrRateLimited is returned when a client exhausted its window.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrGenericFetch is returned when the generic HTML download fails.
	// There is no fallback after the generic resolver, so it reaches the caller.
	ErrGenericFetch = errors.New("failed to fetch url")
)

// RateLimitError carries the window state of a rejected request.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (limit %d, retry in %s)", ErrRateLimited, e.Limit, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
