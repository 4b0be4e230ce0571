package types

import "errors"

var (
	// ErrNotFound is returned when no credential exists for an identity
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when caller input violates a precondition
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a watched key was modified by a
	// concurrent writer before the transaction committed
	ErrConflict = errors.New("conflict")

	// ErrCrypto is returned when the cipher suite rejects an operation
	// (malformed public key, oversized payload)
	ErrCrypto = errors.New("crypto failure")

	// ErrKeyGeneration is returned when a symmetric key of the requested
	// size cannot be generated
	ErrKeyGeneration = errors.New("key generation failure")

	// ErrStorage is returned when the backing store is unreachable or
	// failed at the protocol level
	ErrStorage = errors.New("storage failure")
)
