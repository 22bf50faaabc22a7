package paychan

import "errors"

var (
	// ErrUnauthenticated is returned when the payer did not sign the request.
	ErrUnauthenticated = errors.New("paychan: unauthenticated")
	// ErrRecordNotInitialized is returned for addresses that hold no
	// channel, including closed ones.
	ErrRecordNotInitialized = errors.New("paychan: record not initialized")
	// ErrIdentityMismatch is returned when the payer or payee of a request
	// differ from the ones stored in the channel.
	ErrIdentityMismatch = errors.New("paychan: identity mismatch")
	// ErrExpiredChannel is returned by mutating operations past expiry.
	ErrExpiredChannel = errors.New("paychan: channel expired")
	// ErrInsufficientFunds is returned when an operation would pay out more
	// than the channel holds.
	ErrInsufficientFunds = errors.New("paychan: insufficient funds")
	// ErrAllocationFailed is returned when the payer cannot fund a channel.
	ErrAllocationFailed = errors.New("paychan: allocation failed")
	// ErrMalformedRequest is returned for instructions that do not decode.
	ErrMalformedRequest = errors.New("paychan: malformed request")
	// ErrAlreadyInitialized is returned when initializing an address that is
	// already in use.
	ErrAlreadyInitialized = errors.New("paychan: already initialized")
	// ErrInvalidAccountOwner is returned when the channel address is held by
	// an account that does not belong to the channel program.
	ErrInvalidAccountOwner = errors.New("paychan: invalid account owner")
	// ErrInvalidRecord is returned when stored channel data does not decode.
	ErrInvalidRecord = errors.New("paychan: invalid channel record")
)
