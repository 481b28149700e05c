package assumptions

import "errors"

var (
	// ErrSetNotFound is returned when no assumption set matches the id.
	ErrSetNotFound = errors.New("assumption set not found")
	// ErrNoActiveSet is returned when a forecast is requested without
	// naming a set and no set is marked active.
	ErrNoActiveSet = errors.New("no active assumption set")
)
