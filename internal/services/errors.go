package services

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrInvalidRecipient    = errors.New("invalid recipient address")
	ErrInvalidAccount      = errors.New("invalid account address")
	ErrInvalidTokenID      = errors.New("invalid token id")
	ErrInvalidHash         = errors.New("invalid transaction hash")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrChainRead           = errors.New("chain read failed")
	ErrSubmission          = errors.New("transaction submission failed")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// Error kinds, stable labels for API bodies and metrics.
const (
	KindInvalidRecipient    = "invalid_recipient"
	KindInvalidAccount      = "invalid_account"
	KindInvalidTokenID      = "invalid_token_id"
	KindInvalidHash         = "invalid_hash"
	KindInsufficientBalance = "insufficient_balance"
	KindChainRead           = "chain_read"
	KindSubmission          = "submission"
	KindTransactionFailed   = "transaction_failed"
	KindConfirmationTimeout = "confirmation_timeout"
	KindInternal            = "internal"
)

type InvalidRecipientError struct {
	Address string
}

func (e *InvalidRecipientError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidRecipient, e.Address)
}

func (e *InvalidRecipientError) Is(target error) bool { return target == ErrInvalidRecipient }

type InvalidAccountError struct {
	Address string
}

func (e *InvalidAccountError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidAccount, e.Address)
}

func (e *InvalidAccountError) Is(target error) bool { return target == ErrInvalidAccount }

type InvalidTokenIDError struct {
	TokenID string
	Err     error
}

func (e *InvalidTokenIDError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrInvalidTokenID, e.TokenID, e.Err)
}

func (e *InvalidTokenIDError) Is(target error) bool { return target == ErrInvalidTokenID }

func (e *InvalidTokenIDError) Unwrap() error { return e.Err }

type InvalidHashError struct {
	Hash string
}

func (e *InvalidHashError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidHash, e.Hash)
}

func (e *InvalidHashError) Is(target error) bool { return target == ErrInvalidHash }

type InsufficientBalanceError struct {
	Available *big.Int
	Requested *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: have %s, need %s", ErrInsufficientBalance, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// ChainReadError is a read (contract call or status lookup) that could not be performed.
// Hash is set when the failed read was a status lookup for a submitted transaction.
type ChainReadError struct {
	Op   string
	Hash string
	Err  error
}

func (e *ChainReadError) Error() string {
	if e.Hash != "" {
		return fmt.Sprintf("%s: %s %s: %v", ErrChainRead, e.Op, e.Hash, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrChainRead, e.Op, e.Err)
}

func (e *ChainReadError) Is(target error) bool { return target == ErrChainRead }

func (e *ChainReadError) Unwrap() error { return e.Err }

// SubmissionError is a failure before the node returned a transaction hash.
// Hash is set when the broadcast itself failed without a node verdict, so the
// signed transaction may still reach the sequencer.
type SubmissionError struct {
	Hash string
	Err  error
}

func (e *SubmissionError) Error() string {
	if e.Hash != "" {
		return fmt.Sprintf("%s (tx %s): %v", ErrSubmission, e.Hash, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrSubmission, e.Err)
}

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }

func (e *SubmissionError) Unwrap() error { return e.Err }

// TransactionFailedError is a transaction that was accepted for processing but rejected or reverted.
type TransactionFailedError struct {
	Hash   string
	Status string
	Reason string
}

func (e *TransactionFailedError) Error() string {
	msg := fmt.Sprintf("%s with status %s (tx %s)", ErrTransactionFailed, e.Status, e.Hash)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransactionFailedError) Is(target error) bool { return target == ErrTransactionFailed }

// ConfirmationTimeoutError is a transaction still non-terminal when the wait ended.
// The transaction may still land; callers can re-check Hash later.
type ConfirmationTimeoutError struct {
	Hash       string
	LastStatus string
	Err        error
}

func (e *ConfirmationTimeoutError) Error() string {
	msg := fmt.Sprintf("%s: tx %s last status %s", ErrConfirmationTimeout, e.Hash, e.LastStatus)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfirmationTimeoutError) Is(target error) bool { return target == ErrConfirmationTimeout }

func (e *ConfirmationTimeoutError) Unwrap() error { return e.Err }

// ErrorKind maps an error to its kind label. Unknown errors are KindInternal.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRecipient):
		return KindInvalidRecipient
	case errors.Is(err, ErrInvalidAccount):
		return KindInvalidAccount
	case errors.Is(err, ErrInvalidTokenID):
		return KindInvalidTokenID
	case errors.Is(err, ErrInvalidHash):
		return KindInvalidHash
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrChainRead):
		return KindChainRead
	case errors.Is(err, ErrSubmission):
		return KindSubmission
	case errors.Is(err, ErrTransactionFailed):
		return KindTransactionFailed
	case errors.Is(err, ErrConfirmationTimeout):
		return KindConfirmationTimeout
	default:
		return KindInternal
	}
}
