package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an entity with the same unique key already exists.
	ErrDuplicate = errors.New("entity already exists")
)
