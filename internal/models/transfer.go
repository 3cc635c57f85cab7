package models

import (
	"math/big"
)

// DefaultTransferAmount is used when a request leaves Amount unset.
const DefaultTransferAmount uint64 = 1

type TransferRequest struct {
	Recipient string `json:"to"`
	TokenID   string `json:"tokenId"`
	// Amount of units to send. Zero means unset and defaults to DefaultTransferAmount.
	Amount uint64 `json:"amount,omitempty"`
}

func (r TransferRequest) EffectiveAmount() uint64 {
	if r.Amount == 0 {
		return DefaultTransferAmount
	}
	return r.Amount
}

type Balance struct {
	Account string   `json:"account"`
	TokenID string   `json:"tokenId"`
	Amount  *big.Int `json:"balance"`
}

type TransactionHandle struct {
	Hash string `json:"hash"`
}

type ConfirmationOutcome struct {
	Outcome Outcome `json:"outcome"`
	Status  string  `json:"status"`
	Hash    string  `json:"hash"`
}

type TransferResult struct {
	Hash    string              `json:"hash"`
	Outcome ConfirmationOutcome `json:"outcome"`
}

// Call is an invocation of an entry point on the configured token contract.
type Call struct {
	Method   string     `json:"method"`
	Calldata []*big.Int `json:"calldata"`
}
