package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
	// ErrStaleStatus is returned by compare-and-set updates when the row moved
	// to another status since it was read.
	ErrStaleStatus = errors.New("status changed concurrently")
)
