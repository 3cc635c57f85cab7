package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"

	"nftrelay/service/internal/clients"
	"nftrelay/service/internal/config"
	"nftrelay/service/internal/models"
	"nftrelay/service/internal/stores"
	"nftrelay/service/internal/utils/address"
	felthelpers "nftrelay/service/internal/utils/felt"
)

// ChainClient is the capability surface the transfer flow needs from the chain.
type ChainClient interface {
	// Calls a view entry point on the token contract.
	ReadContract(ctx context.Context, method string, args []*big.Int) ([]*big.Int, error)
	// Signs and broadcasts an invoke of the token contract from the service account.
	Submit(ctx context.Context, call models.Call) (models.TransactionHandle, error)
	// Polls until the transaction reaches a terminal status or the wait budget elapses,
	// in which case the last observed status is returned without error.
	AwaitStatus(ctx context.Context, hash string) (models.TxStatus, error)
	// Single status lookup.
	TransactionStatus(ctx context.Context, hash string) (models.TxStatus, error)
}

// HealthChecker is implemented by chain clients that can probe node reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// StarknetRPC is the node API used by StarknetProvider, implemented by *clients.StarknetClient.
type StarknetRPC interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (string, error)
	Call(ctx context.Context, call clients.FunctionCall, blockID string) ([]string, error)
	Nonce(ctx context.Context, blockID string, contractAddress string) (string, error)
	EstimateFee(ctx context.Context, txs []clients.InvokeTxnV3, flags []string, blockID string) ([]clients.FeeEstimate, error)
	AddInvokeTransaction(ctx context.Context, tx clients.InvokeTxnV3) (string, error)
	TransactionStatus(ctx context.Context, hash string) (clients.TransactionStatusResponse, error)
}

type ProviderConfig struct {
	ContractAddress string
	AccountAddress  string
	// Chain id short string, e.g. SN_SEPOLIA.
	ChainID      string
	WaitBudget   time.Duration
	PollInterval time.Duration
	Fees         config.FeeConfig
}

// StarknetProvider implements ChainClient against a Starknet node with one account and
// one signing key, both fixed at construction.
type StarknetProvider struct {
	rpc    StarknetRPC
	signer stores.Signer
	log    zerolog.Logger

	contract     *big.Int
	account      *big.Int
	chainID      *big.Int
	waitBudget   time.Duration
	pollInterval time.Duration
	fees         config.FeeConfig
}

func NewStarknetProvider(rpc StarknetRPC, signer stores.Signer, cfg ProviderConfig, log zerolog.Logger) (*StarknetProvider, error) {
	if rpc == nil || signer == nil {
		return nil, errors.New("rpc client and signer are required")
	}
	contract, err := address.ToBig(cfg.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("contract address: %w", err)
	}
	account, err := address.ToBig(cfg.AccountAddress)
	if err != nil {
		return nil, fmt.Errorf("account address: %w", err)
	}
	chainID, err := felthelpers.ShortString(cfg.ChainID)
	if err != nil || chainID.Sign() == 0 {
		return nil, fmt.Errorf("invalid chain id %q", cfg.ChainID)
	}
	if cfg.WaitBudget <= 0 || cfg.PollInterval <= 0 {
		return nil, errors.New("wait budget and poll interval must be positive")
	}
	if cfg.Fees.Multiplier < 1 {
		cfg.Fees.Multiplier = 1
	}
	return &StarknetProvider{
		rpc:          rpc,
		signer:       signer,
		log:          log,
		contract:     contract,
		account:      account,
		chainID:      chainID,
		waitBudget:   cfg.WaitBudget,
		pollInterval: cfg.PollInterval,
		fees:         cfg.Fees,
	}, nil
}

func (p *StarknetProvider) ReadContract(ctx context.Context, method string, args []*big.Int) ([]*big.Int, error) {
	raw, err := p.rpc.Call(ctx, clients.FunctionCall{
		ContractAddress:    felthelpers.Hex(p.contract),
		EntryPointSelector: felthelpers.Hex(felthelpers.Selector(method)),
		Calldata:           felthelpers.HexSlice(args),
	}, clients.BlockLatest)
	if err != nil {
		return nil, &ChainReadError{Op: "call " + method, Err: err}
	}
	out, err := felthelpers.ParseSlice(raw)
	if err != nil {
		return nil, &ChainReadError{Op: "call " + method, Err: fmt.Errorf("malformed result: %w", err)}
	}
	return out, nil
}

func (p *StarknetProvider) Submit(ctx context.Context, call models.Call) (models.TransactionHandle, error) {
	if call.Method == "" {
		return models.TransactionHandle{}, &SubmissionError{Err: errors.New("empty method")}
	}

	rawNonce, err := p.rpc.Nonce(ctx, clients.BlockLatest, felthelpers.Hex(p.account))
	if err != nil {
		return models.TransactionHandle{}, &SubmissionError{Err: fmt.Errorf("fetch nonce: %w", err)}
	}
	nonce, err := felthelpers.Parse(rawNonce)
	if err != nil {
		return models.TransactionHandle{}, &SubmissionError{Err: fmt.Errorf("parse nonce: %w", err)}
	}

	tx := invokeV3{
		Version:  txVersion3,
		Sender:   p.account,
		Calldata: executeCalldata(p.contract, felthelpers.Selector(call.Method), call.Calldata),
		Nonce:    nonce,
		ChainID:  p.chainID,
		Tip:      new(big.Int),
	}

	tx.Bounds, err = p.resourceBounds(ctx, tx)
	if err != nil {
		return models.TransactionHandle{}, &SubmissionError{Err: err}
	}

	hash, err := tx.hash()
	if err != nil {
		return models.TransactionHandle{}, &SubmissionError{Err: fmt.Errorf("hash transaction: %w", err)}
	}
	r, s, err := p.signer.Sign(ctx, hash)
	if err != nil {
		return models.TransactionHandle{}, &SubmissionError{Err: fmt.Errorf("sign transaction: %w", err)}
	}

	txHash, err := p.rpc.AddInvokeTransaction(ctx, tx.rpc([]*big.Int{r, s}))
	if err != nil {
		subErr := &SubmissionError{Err: err}
		if _, answered := clients.ErrorCode(err); !answered {
			subErr.Hash = felthelpers.Hex(hash)
		}
		return models.TransactionHandle{}, subErr
	}

	if got, perr := felthelpers.Parse(txHash); perr == nil && got.Cmp(hash) != 0 {
		p.log.Warn().Str("node_hash", txHash).Str("local_hash", felthelpers.Hex(hash)).Msg("node returned a different transaction hash")
	}
	p.log.Debug().Str("tx_hash", txHash).Str("method", call.Method).Str("nonce", rawNonce).Msg("transaction submitted")
	return models.TransactionHandle{Hash: txHash}, nil
}

func (p *StarknetProvider) TransactionStatus(ctx context.Context, hash string) (models.TxStatus, error) {
	resp, err := p.rpc.TransactionStatus(ctx, hash)
	if err != nil {
		return models.TxStatus{}, &ChainReadError{Op: "transaction status", Hash: hash, Err: err}
	}
	return models.TxStatus{
		Finality:      resp.FinalityStatus,
		Execution:     resp.ExecutionStatus,
		FailureReason: resp.FailureReason,
	}, nil
}

func (p *StarknetProvider) AwaitStatus(ctx context.Context, hash string) (models.TxStatus, error) {
	wctx, cancel := context.WithTimeout(ctx, p.waitBudget)
	defer cancel()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	last := models.TxStatus{Finality: models.FinalityNotReceived}
	for {
		st, err := p.TransactionStatus(wctx, hash)
		switch {
		case err == nil:
			last = st
			if st.Terminal() {
				return st, nil
			}
		case clients.IsTxNotFound(err):
			// not yet visible to this node
		case wctx.Err() != nil:
			return last, ctx.Err()
		default:
			return last, err
		}

		select {
		case <-wctx.Done():
			// nil when only the wait budget ran out
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *StarknetProvider) Ping(ctx context.Context) error {
	if _, err := p.rpc.BlockNumber(ctx); err != nil {
		return &ChainReadError{Op: "block number", Err: err}
	}
	return nil
}

// VerifyChainID checks the node serves the configured network.
func (p *StarknetProvider) VerifyChainID(ctx context.Context) error {
	raw, err := p.rpc.ChainID(ctx)
	if err != nil {
		return &ChainReadError{Op: "chain id", Err: err}
	}
	got, err := felthelpers.Parse(raw)
	if err != nil {
		return &ChainReadError{Op: "chain id", Err: err}
	}
	if got.Cmp(p.chainID) != 0 {
		return fmt.Errorf("node chain id %s does not match configured %s",
			felthelpers.DecodeShortString(got), felthelpers.DecodeShortString(p.chainID))
	}
	return nil
}

func (p *StarknetProvider) resourceBounds(ctx context.Context, tx invokeV3) (resourceBounds, error) {
	if p.fees.Static() {
		return resourceBounds{
			L1Gas:     resourceBound{MaxAmount: new(big.Int).SetUint64(p.fees.L1GasMaxAmount), MaxPrice: new(big.Int).SetUint64(p.fees.L1GasMaxPrice)},
			L2Gas:     resourceBound{MaxAmount: new(big.Int).SetUint64(p.fees.L2GasMaxAmount), MaxPrice: new(big.Int).SetUint64(p.fees.L2GasMaxPrice)},
			L1DataGas: resourceBound{MaxAmount: new(big.Int).SetUint64(p.fees.L1DataGasMaxAmount), MaxPrice: new(big.Int).SetUint64(p.fees.L1DataGasMaxPrice)},
		}, nil
	}

	query := tx
	query.Version = txVersion3Query
	query.Bounds = zeroBounds()

	estimates, err := p.rpc.EstimateFee(ctx, []clients.InvokeTxnV3{query.rpc(nil)}, []string{clients.SimulationSkipValidate}, clients.BlockLatest)
	if err != nil {
		return resourceBounds{}, fmt.Errorf("estimate fee: %w", err)
	}
	if len(estimates) != 1 {
		return resourceBounds{}, fmt.Errorf("estimate fee: expected 1 estimate, got %d", len(estimates))
	}
	return p.boundsFromEstimate(estimates[0])
}

func (p *StarknetProvider) boundsFromEstimate(est clients.FeeEstimate) (resourceBounds, error) {
	pair := func(name, amount, price string) (resourceBound, error) {
		a, err := parseOptionalFelt(amount)
		if err != nil {
			return resourceBound{}, fmt.Errorf("estimate fee %s consumed: %w", name, err)
		}
		pr, err := parseOptionalFelt(price)
		if err != nil {
			return resourceBound{}, fmt.Errorf("estimate fee %s price: %w", name, err)
		}
		return resourceBound{
			MaxAmount: capAt(scale(a, p.fees.Multiplier), maxUint64),
			MaxPrice:  capAt(scale(pr, p.fees.Multiplier), maxUint128),
		}, nil
	}

	l1, err := pair("l1 gas", est.L1GasConsumed, est.L1GasPrice)
	if err != nil {
		return resourceBounds{}, err
	}
	l2, err := pair("l2 gas", est.L2GasConsumed, est.L2GasPrice)
	if err != nil {
		return resourceBounds{}, err
	}
	l1Data, err := pair("l1 data gas", est.L1DataGasConsumed, est.L1DataGasPrice)
	if err != nil {
		return resourceBounds{}, err
	}
	return resourceBounds{L1Gas: l1, L2Gas: l2, L1DataGas: l1Data}, nil
}

func parseOptionalFelt(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	return felthelpers.Parse(s)
}

// scale multiplies v by m, rounding up.
func scale(v *big.Int, m float64) *big.Int {
	f := new(big.Float).SetInt(v)
	f.Mul(f, big.NewFloat(m))
	out, acc := f.Int(nil)
	if acc == big.Below {
		out.Add(out, big.NewInt(1))
	}
	return out
}

func capAt(v, limit *big.Int) *big.Int {
	if v.Cmp(limit) > 0 {
		return new(big.Int).Set(limit)
	}
	return v
}
