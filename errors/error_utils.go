// Package errors provides the coded error type used across the ledger core,
// and helpers for categorising those errors.
package errors

import (
	"context"
	"errors"
)

// IsRejection reports whether err is a recoverable refusal of a candidate
// block or transaction. Chain state is unchanged when such an error is returned.
func IsRejection(err error) bool {
	if err == nil {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_BLOCK_EXISTS,
			ERR_BLOCK_PARENT_NOT_FOUND,
			ERR_BLOCK_INVALID,
			ERR_TX_INVALID,
			ERR_TX_INVALID_DOUBLE_SPEND,
			ERR_UTXO_NOT_FOUND:
			return true
		}
	}

	return false
}

// IsLedgerViolation reports whether err signals that the validate-then-mutate
// protocol of the UTXO store was bypassed.
func IsLedgerViolation(err error) bool {
	if err == nil {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		for tErr != nil {
			if tErr.Code() == ERR_UTXO_LEDGER || tErr.Code() == ERR_SPENT {
				return true
			}

			next, ok := tErr.WrappedErr().(*Error)
			if !ok {
				break
			}

			tErr = next
		}
	}

	return false
}

// IsContextError determines if an error is due to context cancellation or timeout.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// GetErrorCategory returns a short label for err, used as a metrics label.
func GetErrorCategory(err error) string {
	if err == nil {
		return "none"
	}

	if IsContextError(err) {
		return "context"
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_BLOCK_EXISTS:
			return "duplicate"
		case ERR_BLOCK_PARENT_NOT_FOUND:
			return "no_parent"
		case ERR_BLOCK_INVALID:
			return "invalid_block"
		case ERR_TX_INVALID, ERR_TX_INVALID_DOUBLE_SPEND, ERR_UTXO_NOT_FOUND:
			return "invalid_tx"
		case ERR_UTXO_LEDGER, ERR_SPENT:
			return "ledger"
		}
	}

	return "other"
}
