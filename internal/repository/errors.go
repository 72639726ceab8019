package repository

import "errors"

// Repository-level errors let the service layer react to storage outcomes without
// depending on a particular driver (sql.ErrNoRows, mongo.ErrNoDocuments, ...).

// ErrNotFound is returned when a single-entity lookup or an owner-scoped update
// matches nothing.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict is returned when a unique constraint (such as a user's email) is violated.
var ErrConflict = errors.New("repository: conflict")
