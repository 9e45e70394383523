package repository

import "errors"

var (
	// ErrRecordNotFound is returned when a lookup expecting exactly one row
	// finds none.
	ErrRecordNotFound = errors.New("record not found")

	// ErrAmbiguousResult is returned when a lookup expecting exactly one row
	// finds more than one. Callers must surface it, not pick a row.
	ErrAmbiguousResult = errors.New("ambiguous result: more than one row matched")
)
