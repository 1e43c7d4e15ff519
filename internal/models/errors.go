package models

import "errors"

var (
	ErrValidation        = errors.New("missing required fields")
	ErrJobNotFound       = errors.New("job not found")
	ErrDuplicateJobID    = errors.New("duplicate job id")
	ErrInvalidTransition = errors.New("invalid job state transition")
	ErrDocumentNotFound  = errors.New("document not found")
)
