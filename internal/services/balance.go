package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	felthelpers "nftrelay/service/internal/utils/felt"
)

const methodBalanceOf = "balance_of"

// BalanceChecker reads ERC-1155 balances from the token contract.
type BalanceChecker struct {
	chain ChainClient
}

func NewBalanceChecker(chain ChainClient) *BalanceChecker {
	return &BalanceChecker{chain: chain}
}

// GetBalance returns the amount of tokenID held by account. account must already be a
// valid address and tokenID an in-range u256. The balance is read fresh on every call.
func (b *BalanceChecker) GetBalance(ctx context.Context, account *big.Int, tokenID *big.Int) (*big.Int, error) {
	low, high := felthelpers.SplitUint256(tokenID)
	out, err := b.chain.ReadContract(ctx, methodBalanceOf, []*big.Int{account, low, high})
	if err != nil {
		return nil, asChainRead(methodBalanceOf, err)
	}
	if len(out) != 2 {
		return nil, &ChainReadError{Op: methodBalanceOf, Err: fmt.Errorf("expected [low, high], got %d values", len(out))}
	}
	amount, err := felthelpers.JoinUint256(out[0], out[1])
	if err != nil {
		return nil, &ChainReadError{Op: methodBalanceOf, Err: err}
	}
	return amount, nil
}

// asChainRead keeps typed chain errors and wraps anything else.
func asChainRead(op string, err error) error {
	if errors.Is(err, ErrChainRead) {
		return err
	}
	return &ChainReadError{Op: op, Err: err}
}
