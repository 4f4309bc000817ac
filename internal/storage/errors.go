// Package storage holds what the memory and postgres backends share.
package storage

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// DefaultDailyBoosts is the signal boost allowance of a profile that has none recorded.
const DefaultDailyBoosts = 3
