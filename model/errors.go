package model

import "fmt"

// ValidationError reports bad caller input or a governor rejection. The
// request never reaches a store when one of these is raised.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %v: %v", e.Field, e.Reason)
}

// ConfigValidationError reports invalid user parameters. The loader catches
// it and falls back to system defaults.
type ConfigValidationError struct {
	Field  string
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for %v: %v", e.Field, e.Reason)
}

// StoreUnavailableError reports that a backing store cannot be reached at
// all. Fatal for the stage; fatal or degraded for the request depending on
// which stage raised it.
type StoreUnavailableError struct {
	Store string
	Err   error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store %v unavailable: %v", e.Store, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// StoreTimeoutError reports that a store call exceeded its per-operation
// timeout. Treated as degraded for grounding and traversal, logged for
// single-entity enrichment.
type StoreTimeoutError struct {
	Store string
	Err   error
}

func (e *StoreTimeoutError) Error() string {
	return fmt.Sprintf("store %v timed out: %v", e.Store, e.Err)
}

func (e *StoreTimeoutError) Unwrap() error {
	return e.Err
}
