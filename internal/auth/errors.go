package auth

import "errors"

var (
	// ErrInvalidCredentials is the only failure Login reports for a rejected
	// password, whichever layer rejected it.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrThrottled          = errors.New("too many failed attempts")
	ErrSessionNotFound    = errors.New("session not found")
)
