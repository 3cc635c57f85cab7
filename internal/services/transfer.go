package services

import (
	"context"
	"errors"
	"math/big"

	"github.com/rs/zerolog"

	"nftrelay/service/internal/models"
	"nftrelay/service/internal/utils/address"
	felthelpers "nftrelay/service/internal/utils/felt"
)

const (
	DefaultTransferEntrypoint = "safe_transfer_from"
	methodURI                 = "uri"
)

// TransferService moves ERC-1155 tokens out of the service account.
// It holds no per-request state and is safe for concurrent use.
type TransferService struct {
	chain      ChainClient
	balances   *BalanceChecker
	sender     *big.Int
	senderHex  string
	entrypoint string
	log        zerolog.Logger
}

func NewTransferService(chain ChainClient, sender string, entrypoint string, log zerolog.Logger) (*TransferService, error) {
	if chain == nil {
		return nil, errors.New("chain client is required")
	}
	senderHex, err := address.Normalize(sender)
	if err != nil {
		return nil, &InvalidAccountError{Address: sender}
	}
	senderBig, err := address.ToBig(senderHex)
	if err != nil {
		return nil, err
	}
	if entrypoint == "" {
		entrypoint = DefaultTransferEntrypoint
	}
	return &TransferService{
		chain:      chain,
		balances:   NewBalanceChecker(chain),
		sender:     senderBig,
		senderHex:  senderHex,
		entrypoint: entrypoint,
		log:        log,
	}, nil
}

// Sender is the normalized address tokens are sent from.
func (s *TransferService) Sender() string {
	return s.senderHex
}

// TransferNFT validates req, checks the sender's balance, submits the transfer and
// waits for it to reach a terminal status.
func (s *TransferService) TransferNFT(ctx context.Context, req models.TransferRequest) (models.TransferResult, error) {
	log := s.log.With().Str("to", req.Recipient).Str("token_id", req.TokenID).Logger()
	state := models.StateValidating
	log.Debug().Str("state", string(state)).Msg("transfer started")

	fail := func(err error) (models.TransferResult, error) {
		log.Warn().Err(err).Str("state", string(state)).Str("kind", ErrorKind(err)).Msg("transfer failed")
		return models.TransferResult{}, err
	}
	advance := func(next models.TransferState) {
		log.Debug().Str("from", string(state)).Str("state", string(next)).Msg("transfer state")
		state = next
	}

	if !address.Validate(req.Recipient) {
		return fail(&InvalidRecipientError{Address: req.Recipient})
	}
	to, err := address.ToBig(req.Recipient)
	if err != nil {
		return fail(&InvalidRecipientError{Address: req.Recipient})
	}
	tokenID, err := felthelpers.ParseUint256(req.TokenID)
	if err != nil {
		return fail(&InvalidTokenIDError{TokenID: req.TokenID, Err: err})
	}
	amount := new(big.Int).SetUint64(req.EffectiveAmount())

	advance(models.StateBalanceChecking)
	available, err := s.balances.GetBalance(ctx, s.sender, tokenID)
	if err != nil {
		return fail(err)
	}
	if available.Cmp(amount) < 0 {
		return fail(&InsufficientBalanceError{Available: available, Requested: amount})
	}

	advance(models.StateSubmitting)
	handle, err := s.chain.Submit(ctx, s.transferCall(to, tokenID, amount))
	if err != nil {
		if !errors.Is(err, ErrSubmission) {
			err = &SubmissionError{Err: err}
		}
		return fail(err)
	}
	log = log.With().Str("tx_hash", handle.Hash).Logger()

	advance(models.StateConfirming)
	status, err := s.chain.AwaitStatus(ctx, handle.Hash)
	if err != nil {
		if ctx.Err() != nil {
			return fail(&ConfirmationTimeoutError{Hash: handle.Hash, LastStatus: status.Stage(), Err: err})
		}
		var readErr *ChainReadError
		if errors.As(err, &readErr) {
			if readErr.Hash == "" {
				readErr.Hash = handle.Hash
			}
			return fail(readErr)
		}
		return fail(&ChainReadError{Op: "transaction status", Hash: handle.Hash, Err: err})
	}

	switch {
	case status.Succeeded():
		advance(models.StateSucceeded)
		log.Info().Str("status", status.String()).Msg("transfer confirmed")
		return models.TransferResult{
			Hash: handle.Hash,
			Outcome: models.ConfirmationOutcome{
				Outcome: models.OutcomeSucceeded,
				Status:  status.String(),
				Hash:    handle.Hash,
			},
		}, nil
	case status.Failed():
		advance(models.StateFailed)
		return fail(&TransactionFailedError{Hash: handle.Hash, Status: status.String(), Reason: status.FailureReason})
	default:
		advance(models.StateFailed)
		return fail(&ConfirmationTimeoutError{Hash: handle.Hash, LastStatus: status.Stage()})
	}
}

// GetBalance returns the balance of account for tokenID.
func (s *TransferService) GetBalance(ctx context.Context, account string, tokenID string) (models.Balance, error) {
	if !address.Validate(account) {
		return models.Balance{}, &InvalidAccountError{Address: account}
	}
	acc, err := address.ToBig(account)
	if err != nil {
		return models.Balance{}, &InvalidAccountError{Address: account}
	}
	id, err := felthelpers.ParseUint256(tokenID)
	if err != nil {
		return models.Balance{}, &InvalidTokenIDError{TokenID: tokenID, Err: err}
	}
	amount, err := s.balances.GetBalance(ctx, acc, id)
	if err != nil {
		return models.Balance{}, err
	}
	return models.Balance{Account: account, TokenID: tokenID, Amount: amount}, nil
}

// TokenURI reads the metadata URI of tokenID. Contracts returning a Cairo ByteArray
// and legacy contracts returning an array of short strings are both supported.
func (s *TransferService) TokenURI(ctx context.Context, tokenID string) (string, error) {
	id, err := felthelpers.ParseUint256(tokenID)
	if err != nil {
		return "", &InvalidTokenIDError{TokenID: tokenID, Err: err}
	}
	low, high := felthelpers.SplitUint256(id)
	out, err := s.chain.ReadContract(ctx, methodURI, []*big.Int{low, high})
	if err != nil {
		return "", asChainRead(methodURI, err)
	}
	if uri, err := felthelpers.DecodeByteArray(out); err == nil {
		return uri, nil
	}
	return felthelpers.DecodeShortStrings(out), nil
}

// TransactionStatus looks up hash once.
func (s *TransferService) TransactionStatus(ctx context.Context, hash string) (models.TxStatus, error) {
	if _, err := felthelpers.Parse(hash); err != nil {
		return models.TxStatus{}, &InvalidHashError{Hash: hash}
	}
	st, err := s.chain.TransactionStatus(ctx, hash)
	if err != nil {
		return models.TxStatus{}, asChainRead("transaction status", err)
	}
	return st, nil
}

// Ping checks the node is reachable. Chain clients without a health probe always pass.
func (s *TransferService) Ping(ctx context.Context) error {
	if hc, ok := s.chain.(HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

// transferCall builds safe_transfer_from(from, to, id, amount, data) with empty data.
func (s *TransferService) transferCall(to, tokenID, amount *big.Int) models.Call {
	idLow, idHigh := felthelpers.SplitUint256(tokenID)
	amountLow, amountHigh := felthelpers.SplitUint256(amount)
	return models.Call{
		Method: s.entrypoint,
		Calldata: []*big.Int{
			s.sender,
			to,
			idLow, idHigh,
			amountLow, amountHigh,
			big.NewInt(0),
		},
	}
}
