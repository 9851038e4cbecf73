// Package errs defines the error taxonomy of the settlement core.
// Decode and validation errors are recoverable and mean the input must be
// rejected; MergeConflict indicates a bug in the caller.
package errs

import "fmt"

// ValidationError marks errors that reject a transaction without being fatal.
type ValidationError interface {
	ValidationError()
}

type validationErrorImpl struct{}

func (validationErrorImpl) ValidationError() {}

func IsValidationError(err error) bool {
	_, ok := err.(ValidationError)
	return ok
}

// DecodeError is returned for malformed or truncated transaction bytes.
type DecodeError struct {
	validationErrorImpl
	message string
}

func NewDecodeError(message string) *DecodeError {
	return &DecodeError{message: message}
}

func (e DecodeError) Error() string {
	return e.message
}

func (e DecodeError) Is(target error) bool {
	_, ok := target.(DecodeError)
	if !ok {
		_, ok = target.(*DecodeError)
	}
	return ok
}

// TxValidationError is returned when a transaction breaks one of the settlement
// invariants. The message names the failed invariant.
type TxValidationError struct {
	validationErrorImpl
	message string
}

func NewTxValidationError(message string) *TxValidationError {
	return &TxValidationError{message: message}
}

func (e TxValidationError) Error() string {
	return e.message
}

func (e TxValidationError) Is(target error) bool {
	_, ok := target.(TxValidationError)
	if !ok {
		_, ok = target.(*TxValidationError)
	}
	return ok
}

// OrderValidationError is a validation failure of one of the two orders
// referenced by a match; Side tags which one.
type OrderValidationError struct {
	validationErrorImpl
	side    string
	message string
}

func NewOrderValidationError(side, message string) *OrderValidationError {
	return &OrderValidationError{side: side, message: message}
}

func (e OrderValidationError) Side() string {
	return e.side
}

func (e OrderValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.side, e.message)
}

func (e OrderValidationError) Is(target error) bool {
	_, ok := target.(OrderValidationError)
	if !ok {
		_, ok = target.(*OrderValidationError)
	}
	return ok
}

// SignatureInvalid is kept distinct from the arithmetic validation failures
// because it indicates forgery rather than an invalid but honestly-submitted match.
type SignatureInvalid struct {
	validationErrorImpl
	message string
}

func NewSignatureInvalid(message string) *SignatureInvalid {
	return &SignatureInvalid{message: message}
}

func (e SignatureInvalid) Error() string {
	return e.message
}

func (e SignatureInvalid) Is(target error) bool {
	_, ok := target.(SignatureInvalid)
	if !ok {
		_, ok = target.(*SignatureInvalid)
	}
	return ok
}

// MergeConflict is returned when the same transaction id is merged twice into
// one diff. This is an internal invariant violation, not bad input.
type MergeConflict struct {
	message string
}

func NewMergeConflict(message string) *MergeConflict {
	return &MergeConflict{message: message}
}

func (e MergeConflict) Error() string {
	return e.message
}

func (e MergeConflict) Is(target error) bool {
	_, ok := target.(MergeConflict)
	if !ok {
		_, ok = target.(*MergeConflict)
	}
	return ok
}
