package model

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrAlreadyPaid          = errors.New("invoice is already fully paid")
	ErrConfirmationRequired = errors.New("explicit confirmation is required")
	ErrVersionConflict      = errors.New("invoice was modified concurrently")
	ErrInconsistentState    = errors.New("inconsistent payment state")
)
