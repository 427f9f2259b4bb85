package domain

import "errors"

var (
	// ErrInvalidConfig is returned when a component is constructed with
	// parameters that cannot produce a valid result.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotIndexed is returned by search before any successful ingestion.
	ErrNotIndexed = errors.New("no documents indexed")

	// ErrDirectoryNotFound is returned when an ingestion path is missing
	// or not a directory.
	ErrDirectoryNotFound = errors.New("directory not found")
)
