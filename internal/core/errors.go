package core

import "errors"

var (
	// ErrIndexNotReady is returned when search is attempted before the
	// index has been built and loaded.
	ErrIndexNotReady = errors.New("vector index not loaded")

	// ErrDimensionMismatch is returned when a vector with the wrong
	// dimensionality would reach the index. Fatal at ingestion time.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrBuildInProgress is returned when a second index build is attempted
	// while one is already running.
	ErrBuildInProgress = errors.New("index build already in progress")
)
