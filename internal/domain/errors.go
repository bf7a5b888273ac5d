package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrConflict              = errors.New("conflict")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	ErrInvalidWeightConfig   = errors.New("invalid weight config")
	ErrInvalidVariants       = errors.New("invalid experiment variants")
	ErrExperimentTransition  = errors.New("invalid experiment status transition")
	ErrExperimentDuration    = errors.New("experiment duration below minimum")
	ErrExperimentNotEditable = errors.New("experiment is not editable in its current status")
	ErrUnsupportedEventType  = errors.New("unsupported event type")
)
