package registry

import "errors"

// Errors returned by Registry and Room operations. Callers translate these
// into protocol error codes; AlreadyInRoom has no wire representation and is
// always a silent drop at the router.
var (
	ErrInvalidSize   = errors.New("registry: room size out of range")
	ErrAlreadyExists = errors.New("registry: room id already exists")
	ErrDoesNotExist  = errors.New("registry: room does not exist")
	ErrIsFull        = errors.New("registry: room is full")
	ErrAlreadyInRoom = errors.New("registry: connection already in a room")
)
