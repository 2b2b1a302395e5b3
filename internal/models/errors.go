package models

import "errors"

// ErrNotFound is returned by stores when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDisputeClosed is returned when a write would reopen a dispute that
// already reached a final status.
var ErrDisputeClosed = errors.New("dispute already closed")
