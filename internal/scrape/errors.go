package scrape

import "errors"

var (
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrInvalidTransition = errors.New("invalid job transition")
	ErrInvalidSelectors  = errors.New("invalid provider selectors")
)
