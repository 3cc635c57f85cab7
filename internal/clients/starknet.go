package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// Starknet JSON-RPC error codes the service reacts to.
const (
	CodeContractNotFound     = 20
	CodeBlockNotFound        = 24
	CodeTxHashNotFound       = 29
	CodeContractError        = 40
	CodeTxExecutionError     = 41
	CodeInvalidNonce         = 52
	CodeInsufficientBalance  = 54
	CodeValidationFailure    = 55
	CodeDuplicateTransaction = 59
)

// StarknetClient is a thin typed wrapper over a Starknet node's JSON-RPC API.
// It is safe for concurrent use.
type StarknetClient struct {
	rpc *rpc.Client
}

func NewStarknetClient(ctx context.Context, url string, timeout time.Duration) (*StarknetClient, error) {
	if url == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &StarknetClient{rpc: c}, nil
}

func (c *StarknetClient) Close() {
	c.rpc.Close()
}

func (c *StarknetClient) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	if err := c.rpc.CallContext(ctx, &n, "starknet_blockNumber"); err != nil {
		return 0, fmt.Errorf("starknet_blockNumber: %w", err)
	}
	return n, nil
}

// ChainID returns the hex encoded chain id short string, e.g. 0x534e5f5345504f4c4941.
func (c *StarknetClient) ChainID(ctx context.Context) (string, error) {
	var id string
	if err := c.rpc.CallContext(ctx, &id, "starknet_chainId"); err != nil {
		return "", fmt.Errorf("starknet_chainId: %w", err)
	}
	return id, nil
}

func (c *StarknetClient) Call(ctx context.Context, call FunctionCall, blockID string) ([]string, error) {
	if call.Calldata == nil {
		call.Calldata = []string{}
	}
	var out []string
	if err := c.rpc.CallContext(ctx, &out, "starknet_call", call, blockID); err != nil {
		return nil, fmt.Errorf("starknet_call: %w", err)
	}
	return out, nil
}

func (c *StarknetClient) Nonce(ctx context.Context, blockID string, contractAddress string) (string, error) {
	var nonce string
	if err := c.rpc.CallContext(ctx, &nonce, "starknet_getNonce", blockID, contractAddress); err != nil {
		return "", fmt.Errorf("starknet_getNonce: %w", err)
	}
	return nonce, nil
}

func (c *StarknetClient) EstimateFee(ctx context.Context, txs []InvokeTxnV3, flags []string, blockID string) ([]FeeEstimate, error) {
	if flags == nil {
		flags = []string{}
	}
	var out []FeeEstimate
	if err := c.rpc.CallContext(ctx, &out, "starknet_estimateFee", txs, flags, blockID); err != nil {
		return nil, fmt.Errorf("starknet_estimateFee: %w", err)
	}
	return out, nil
}

func (c *StarknetClient) AddInvokeTransaction(ctx context.Context, tx InvokeTxnV3) (string, error) {
	var resp AddInvokeResponse
	if err := c.rpc.CallContext(ctx, &resp, "starknet_addInvokeTransaction", tx); err != nil {
		return "", fmt.Errorf("starknet_addInvokeTransaction: %w", err)
	}
	if resp.TransactionHash == "" {
		return "", fmt.Errorf("starknet_addInvokeTransaction: empty transaction hash")
	}
	return resp.TransactionHash, nil
}

func (c *StarknetClient) TransactionStatus(ctx context.Context, hash string) (TransactionStatusResponse, error) {
	var resp TransactionStatusResponse
	if err := c.rpc.CallContext(ctx, &resp, "starknet_getTransactionStatus", hash); err != nil {
		return TransactionStatusResponse{}, fmt.Errorf("starknet_getTransactionStatus: %w", err)
	}
	return resp, nil
}

// ErrorCode returns the JSON-RPC error code carried by err, if any.
func ErrorCode(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// IsTxNotFound reports whether the node does not (yet) know the transaction.
func IsTxNotFound(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeTxHashNotFound
}
