package repository

import "errors"

// ErrNotFound is returned when a lookup finds no row.
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicateAnswer is returned by InsertAnswer when a (question instance,
// user) pair already has an Answer row.
var ErrDuplicateAnswer = errors.New("repository: duplicate answer")
