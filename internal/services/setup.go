package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"nftrelay/service/internal/clients"
	"nftrelay/service/internal/config"
	"nftrelay/service/internal/logger"
	"nftrelay/service/internal/stores"
)

// readOnlySender is used as the sender when no wallet is configured; it can read but
// any transfer it attempts fails at signing.
const readOnlySender = "0x0"

// Runtime is the wired chain stack shared by the server and the CLI.
type Runtime struct {
	Client   *clients.StarknetClient
	Provider *StarknetProvider
	Service  *TransferService
}

// Bootstrap dials the node and wires provider and service from cfg.
func Bootstrap(ctx context.Context, cfg *config.Config, signer stores.Signer, log zerolog.Logger) (*Runtime, error) {
	client, err := clients.NewStarknetClient(ctx, cfg.Chain.RPCURL, cfg.Chain.RPCTimeout)
	if err != nil {
		return nil, err
	}

	sender := cfg.Wallet.Address
	if sender == "" {
		sender = readOnlySender
	}

	provider, err := NewStarknetProvider(client, signer, ProviderConfig{
		ContractAddress: cfg.Chain.ContractAddress,
		AccountAddress:  sender,
		ChainID:         cfg.Chain.Network.ChainID,
		WaitBudget:      cfg.Transfer.WaitBudget,
		PollInterval:    cfg.Transfer.PollInterval,
		Fees:            cfg.Transfer.Fees,
	}, logger.Component(log, "chain"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain provider: %w", err)
	}

	svc, err := NewTransferService(provider, sender, cfg.Transfer.Entrypoint, logger.Component(log, "transfer"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("transfer service: %w", err)
	}
	return &Runtime{Client: client, Provider: provider, Service: svc}, nil
}

func (r *Runtime) Close() {
	r.Client.Close()
}
