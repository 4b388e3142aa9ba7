package model

import "github.com/rotisserie/eris"

// Domain error causes. Stores, validators and aggregators wrap these so
// callers can classify failures with eris.Is.
var (
	ErrInvalidInput = eris.New("invalid input")
	ErrNotFound     = eris.New("not found")
	ErrComputation  = eris.New("computation error")
)
