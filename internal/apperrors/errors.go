// Package apperrors holds the error taxonomy shared by the POS core and its
// HTTP adapter. Every error names the resource that caused it.
package apperrors

import (
	"errors"
	"fmt"
)

// Transient infrastructure failures. These are retried before surfacing as
// UnavailableError; everything else is returned to the caller verbatim.
var (
	ErrConflict         = errors.New("pos: concurrent modification")
	ErrLockTimeout      = errors.New("pos: lock acquisition timed out")
	ErrStoreUnavailable = errors.New("pos: store unavailable")
)

// ValidationError is a missing or malformed field, rejected before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// InsufficientStockError reports the first ingredient found short.
type InsufficientStockError struct {
	IngredientID string
	Name         string
	Unit         string
	Requested    float64
	Available    float64
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.IngredientID
	}
	return fmt.Sprintf("insufficient stock for %s (%s): requested %g %s, available %g %s, short %g %s",
		name, e.IngredientID, e.Requested, e.Unit, e.Available, e.Unit, e.Shortfall(), e.Unit)
}

func (e *InsufficientStockError) Shortfall() float64 {
	return e.Requested - e.Available
}

type InvalidTransitionError struct {
	OrderID string
	From    string
	To      string
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("order %s cannot move from %s to %s", e.OrderID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// BusyError means another transition on the same order is still in flight.
type BusyError struct {
	OrderID string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("order %s is busy with another request", e.OrderID)
}

type ShiftAlreadyOpenError struct {
	CashierID string
	ShiftID   string
}

func (e *ShiftAlreadyOpenError) Error() string {
	return fmt.Sprintf("cashier %s already has open shift %s", e.CashierID, e.ShiftID)
}

type ShiftNotFoundError struct {
	ShiftID   string
	CashierID string
}

func (e *ShiftNotFoundError) Error() string {
	if e.ShiftID == "" {
		return fmt.Sprintf("no open shift for cashier %s", e.CashierID)
	}
	return fmt.Sprintf("shift %s not found", e.ShiftID)
}

// ShiftClosedError rejects any mutation of a closed shift, including a second close.
type ShiftClosedError struct {
	ShiftID string
}

func (e *ShiftClosedError) Error() string {
	return fmt.Sprintf("shift %s is already closed", e.ShiftID)
}

type MergeErrorKind string

const (
	MergeTooFew          MergeErrorKind = "too_few"
	MergeNotFound        MergeErrorKind = "not_found"
	MergeAlreadyTerminal MergeErrorKind = "already_terminal"
	MergeArchived        MergeErrorKind = "archived"
	MergeNotMergeable    MergeErrorKind = "not_mergeable"
	MergeDuplicate       MergeErrorKind = "duplicate"
)

type MergeError struct {
	Kind    MergeErrorKind
	OrderID string
}

func (e *MergeError) Error() string {
	switch e.Kind {
	case MergeTooFew:
		return "merge needs at least 2 orders"
	case MergeNotFound:
		return fmt.Sprintf("merge: order %s not found", e.OrderID)
	case MergeAlreadyTerminal:
		return fmt.Sprintf("merge: order %s is already finished or cancelled", e.OrderID)
	case MergeArchived:
		return fmt.Sprintf("merge: order %s is already merged", e.OrderID)
	case MergeNotMergeable:
		return fmt.Sprintf("merge: order %s has already been processed", e.OrderID)
	case MergeDuplicate:
		return fmt.Sprintf("merge: order %s listed twice", e.OrderID)
	}
	return fmt.Sprintf("merge failed: %s", e.Kind)
}

// UnavailableError wraps a transient failure that survived every retry.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s temporarily unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrLockTimeout) ||
		errors.Is(err, ErrStoreUnavailable)
}

// IsNotFound returns true for any of the not-found kinds.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	var snf *ShiftNotFoundError
	return errors.As(err, &nf) || errors.As(err, &snf)
}
