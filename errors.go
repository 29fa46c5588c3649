package launchpad

import (
	"errors"
	"fmt"

	"github.com/xraph/launchpad/token"
	"github.com/xraph/launchpad/types"
)

// Sentinel errors, grouped by failure kind. Every failed operation rolls back
// all of its state changes.
var (
	// Precondition errors
	ErrInvalidInput    = errors.New("launchpad: invalid input")
	ErrZeroAddress     = errors.New("launchpad: zero address")
	ErrZeroAmount      = errors.New("launchpad: zero amount")
	ErrInvalidBps      = errors.New("launchpad: basis points exceed 10000")
	ErrLengthMismatch  = errors.New("launchpad: array lengths differ")
	ErrInvalidDuration = errors.New("launchpad: invalid vesting duration")
	ErrInvalidTime     = errors.New("launchpad: invalid sale time")
	ErrPresaleNotFound = errors.New("launchpad: invalid presale id")
	ErrInvalidRange    = errors.New("launchpad: invalid range")
	ErrUnexpectedValue = errors.New("launchpad: native value sent to token-paid presale")

	// State-machine errors
	ErrScheduleExists    = errors.New("launchpad: schedule already exists")
	ErrScheduleNotFound  = errors.New("launchpad: no vesting schedule")
	ErrAlreadyStarted    = errors.New("launchpad: vesting already started")
	ErrNotStarted        = errors.New("launchpad: vesting not started")
	ErrTGEAlreadyClaimed = errors.New("launchpad: tge already claimed")
	ErrFullyVested       = errors.New("launchpad: schedule fully vested")
	ErrVestingInProgress = errors.New("launchpad: vesting in progress")
	ErrPaused            = errors.New("launchpad: paused")
	ErrNotPaused         = errors.New("launchpad: not paused")
	ErrPresalePaused     = errors.New("launchpad: presale paused")
	ErrPauseUnchanged    = errors.New("launchpad: presale already in requested pause state")
	ErrSaleStarted       = errors.New("launchpad: sale already started")
	ErrSaleEnded         = errors.New("launchpad: sale already ended")
	ErrSaleActive        = errors.New("launchpad: sale is active")
	ErrSaleNotActive     = errors.New("launchpad: sale not active")
	ErrPurchaseNotFound  = errors.New("launchpad: purchase not found")

	// Authorization errors
	ErrUnauthorized   = errors.New("launchpad: unauthorized")
	ErrNotWhitelisted = errors.New("launchpad: caller not whitelisted")

	// Insufficient-resource errors
	ErrInsufficientBalance   = token.ErrInsufficientBalance
	ErrInsufficientAllowance = token.ErrInsufficientAllowance
	ErrInsufficientPayment   = errors.New("launchpad: insufficient payment")
	ErrExceedsReleasable     = errors.New("launchpad: amount exceeds releasable")
	ErrExceedsRemaining      = errors.New("launchpad: amount exceeds tokens remaining")
	ErrExceedsAllocation     = errors.New("launchpad: payout exceeds allocation")

	// Transfer errors
	ErrTransferFailed = errors.New("launchpad: transfer failed")
	ErrReentrantCall  = errors.New("launchpad: reentrant call")

	// Arithmetic errors
	ErrArithmeticOverflow  = types.ErrOverflow
	ErrArithmeticUnderflow = types.ErrUnderflow

	// Engine and store errors
	ErrNotConfigured   = errors.New("launchpad: not configured")
	ErrStoreClosed     = errors.New("launchpad: store is closed")
	ErrMigrationFailed = errors.New("launchpad: migration failed")
)

// ValidationError represents a validation failure with details. Err, when
// set, is the sentinel the failure is classified under.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("launchpad: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

func invalid(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// transferFailed keeps the primitive's cause reachable through errors.Is.
func transferFailed(err error) error {
	if err == nil || errors.Is(err, ErrTransferFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransferFailed, err)
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// IsPrecondition reports whether err rejects malformed input.
func IsPrecondition(err error) bool {
	return isAny(err,
		ErrInvalidInput, ErrZeroAddress, ErrZeroAmount, ErrInvalidBps,
		ErrLengthMismatch, ErrInvalidDuration, ErrInvalidTime,
		ErrPresaleNotFound, ErrInvalidRange, ErrUnexpectedValue,
	)
}

// IsStateViolation reports whether err rejects a call the current ledger
// state does not allow.
func IsStateViolation(err error) bool {
	return isAny(err,
		ErrScheduleExists, ErrScheduleNotFound, ErrAlreadyStarted, ErrNotStarted,
		ErrTGEAlreadyClaimed, ErrFullyVested, ErrVestingInProgress, ErrPaused,
		ErrNotPaused, ErrPresalePaused, ErrPauseUnchanged, ErrSaleStarted,
		ErrSaleEnded, ErrSaleActive, ErrSaleNotActive,
	)
}

// IsUnauthorized reports whether err rejects the caller.
func IsUnauthorized(err error) bool {
	return isAny(err, ErrUnauthorized, ErrNotWhitelisted)
}

// IsInsufficient reports whether err is a shortfall of funds, allowance or
// availability.
func IsInsufficient(err error) bool {
	return isAny(err,
		ErrInsufficientBalance, ErrInsufficientAllowance, ErrInsufficientPayment,
		ErrExceedsReleasable, ErrExceedsRemaining, ErrExceedsAllocation,
	)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return isAny(err, ErrScheduleNotFound, ErrPresaleNotFound, ErrPurchaseNotFound)
}
