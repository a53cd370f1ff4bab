package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is a unique index violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotPending means a payment was already in a terminal status.
	ErrNotPending = errors.New("payment is not pending")
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}
