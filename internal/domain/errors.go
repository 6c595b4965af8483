package domain

import "errors"

var (
	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate record within a tenant.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidRecord signals a record that fails validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrApplicationNotFound signals a missing or unauthenticated tenant.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrResourceNotFound signals a missing parent resource.
	ErrResourceNotFound = errors.New("resource not found")
)
