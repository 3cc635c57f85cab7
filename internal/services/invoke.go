package services

import (
	"fmt"
	"math/big"

	"github.com/NethermindEth/juno/core/crypto"
	"github.com/NethermindEth/juno/core/felt"

	"nftrelay/service/internal/clients"
	felthelpers "nftrelay/service/internal/utils/felt"
)

var (
	invokePrefix = felthelpers.MustShortString("invoke")

	resourceL1Gas     = felthelpers.MustShortString("L1_GAS")
	resourceL2Gas     = felthelpers.MustShortString("L2_GAS")
	resourceL1DataGas = felthelpers.MustShortString("L1_DATA")

	txVersion3 = big.NewInt(3)
	// Query-only version (2^128 + 3) used for fee estimation so the transaction can never be replayed.
	txVersion3Query = new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 128), txVersion3)

	maxUint64  = new(big.Int).SetUint64(^uint64(0))
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// resourceBound is one (max_amount, max_price_per_unit) pair.
type resourceBound struct {
	MaxAmount *big.Int
	MaxPrice  *big.Int
}

type resourceBounds struct {
	L1Gas     resourceBound
	L2Gas     resourceBound
	L1DataGas resourceBound
}

func zeroBounds() resourceBounds {
	zero := resourceBound{MaxAmount: new(big.Int), MaxPrice: new(big.Int)}
	return resourceBounds{L1Gas: zero, L2Gas: zero, L1DataGas: zero}
}

func (b resourceBounds) rpc() clients.ResourceBounds {
	enc := func(r resourceBound) clients.ResourceBound {
		return clients.ResourceBound{MaxAmount: felthelpers.Hex(r.MaxAmount), MaxPricePerUnit: felthelpers.Hex(r.MaxPrice)}
	}
	return clients.ResourceBounds{L1Gas: enc(b.L1Gas), L2Gas: enc(b.L2Gas), L1DataGas: enc(b.L1DataGas)}
}

// invokeV3 holds the fields of a version 3 invoke that enter its hash.
type invokeV3 struct {
	Version  *big.Int
	Sender   *big.Int
	Calldata []*big.Int
	Nonce    *big.Int
	ChainID  *big.Int
	Tip      *big.Int
	Bounds   resourceBounds
}

// hash computes the transaction hash:
// poseidon("invoke", version, sender, poseidon(tip, bounds...), poseidon(paymaster_data),
// chain_id, nonce, da_modes, poseidon(account_deployment_data), poseidon(calldata)).
// Paymaster data and account deployment data are always empty and both DA modes are L1.
func (tx invokeV3) hash() (*big.Int, error) {
	l1, err := encodeBound(resourceL1Gas, tx.Bounds.L1Gas)
	if err != nil {
		return nil, err
	}
	l2, err := encodeBound(resourceL2Gas, tx.Bounds.L2Gas)
	if err != nil {
		return nil, err
	}
	l1Data, err := encodeBound(resourceL1DataGas, tx.Bounds.L1DataGas)
	if err != nil {
		return nil, err
	}
	tip := tx.Tip
	if tip == nil {
		tip = new(big.Int)
	}

	daModes := new(big.Int) // (L1 << 32) | L1, both zero
	return poseidon(
		invokePrefix,
		tx.Version,
		tx.Sender,
		poseidon(tip, l1, l2, l1Data),
		poseidon(),
		tx.ChainID,
		tx.Nonce,
		daModes,
		poseidon(),
		poseidon(tx.Calldata...),
	), nil
}

func (tx invokeV3) rpc(signature []*big.Int) clients.InvokeTxnV3 {
	tip := tx.Tip
	if tip == nil {
		tip = new(big.Int)
	}
	return clients.InvokeTxnV3{
		Type:                      clients.TxTypeInvoke,
		Version:                   felthelpers.Hex(tx.Version),
		SenderAddress:             felthelpers.Hex(tx.Sender),
		Calldata:                  felthelpers.HexSlice(tx.Calldata),
		Signature:                 felthelpers.HexSlice(signature),
		Nonce:                     felthelpers.Hex(tx.Nonce),
		ResourceBounds:            tx.Bounds.rpc(),
		Tip:                       felthelpers.Hex(tip),
		PaymasterData:             []string{},
		AccountDeploymentData:     []string{},
		NonceDataAvailabilityMode: clients.DAModeL1,
		FeeDataAvailabilityMode:   clients.DAModeL1,
	}
}

// encodeBound packs a bound as name << 192 | max_amount << 128 | max_price.
func encodeBound(name *big.Int, b resourceBound) (*big.Int, error) {
	if b.MaxAmount == nil || b.MaxPrice == nil {
		return nil, fmt.Errorf("resource bound %s: missing value", felthelpers.DecodeShortString(name))
	}
	if b.MaxAmount.Sign() < 0 || b.MaxAmount.Cmp(maxUint64) > 0 {
		return nil, fmt.Errorf("resource bound %s: max amount %s exceeds u64", felthelpers.DecodeShortString(name), b.MaxAmount)
	}
	if b.MaxPrice.Sign() < 0 || b.MaxPrice.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("resource bound %s: max price %s exceeds u128", felthelpers.DecodeShortString(name), b.MaxPrice)
	}
	out := new(big.Int).Lsh(name, 192)
	out.Or(out, new(big.Int).Lsh(b.MaxAmount, 128))
	return out.Or(out, b.MaxPrice), nil
}

// executeCalldata encodes a single call in the Cairo 1 account __execute__ layout:
// [calls_len, to, selector, calldata_len, calldata...].
func executeCalldata(to, selector *big.Int, calldata []*big.Int) []*big.Int {
	out := make([]*big.Int, 0, 4+len(calldata))
	out = append(out, big.NewInt(1), to, selector, big.NewInt(int64(len(calldata))))
	return append(out, calldata...)
}

func poseidon(values ...*big.Int) *big.Int {
	elems := make([]*felt.Felt, len(values))
	for i, v := range values {
		elems[i] = new(felt.Felt).SetBigInt(v)
	}
	return crypto.PoseidonArray(elems...).BigInt(new(big.Int))
}
