package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nftrelay/service/internal/config"
	"nftrelay/service/internal/logger"
	"nftrelay/service/internal/models"
	"nftrelay/service/internal/services"
	"nftrelay/service/internal/stores"
)

const (
	toFlag      = "to"
	tokenIDFlag = "token-id"
	amountFlag  = "amount"
	accountFlag = "account"
	hashFlag    = "hash"
	outFlag     = "out"
	keyEnvFlag  = "key-env"
	lightFlag   = "light"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "nftrelay",
		Short:        "Operate the Starknet token relay from the command line",
		SilenceUsage: true,
	}
	root.AddCommand(
		newTransferCmd(),
		newBalanceCmd(),
		newURICmd(),
		newStatusCmd(),
		newImportKeyCmd(),
	)
	return root
}

func newTransferCmd() *cobra.Command {
	var (
		to      string
		tokenID string
		amount  uint64
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Send tokens from the service account and wait for confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed(amountFlag) && amount == 0 {
				return errors.New("--amount must be positive")
			}
			rt, log, err := setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Service.TransferNFT(cmd.Context(), models.TransferRequest{Recipient: to, TokenID: tokenID, Amount: amount})
			if err != nil {
				var timeout *services.ConfirmationTimeoutError
				if errors.As(err, &timeout) {
					log.Warn().Str("hash", timeout.Hash).Msg("not confirmed yet, re-check with: status --hash " + timeout.Hash)
				}
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&to, toFlag, "", "recipient address")
	cmd.Flags().StringVar(&tokenID, tokenIDFlag, "", "token id, decimal or 0x hex")
	cmd.Flags().Uint64Var(&amount, amountFlag, models.DefaultTransferAmount, "number of units to send")
	_ = cmd.MarkFlagRequired(toFlag)
	_ = cmd.MarkFlagRequired(tokenIDFlag)
	return cmd
}

func newBalanceCmd() *cobra.Command {
	var account, tokenID string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the token balance of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if account == "" {
				account = rt.Service.Sender()
			}
			bal, err := rt.Service.GetBalance(cmd.Context(), account, tokenID)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"account": bal.Account,
				"tokenId": bal.TokenID,
				"balance": bal.Amount.String(),
			})
		},
	}
	cmd.Flags().StringVar(&account, accountFlag, "", "account address (defaults to WALLET_ADDRESS)")
	cmd.Flags().StringVar(&tokenID, tokenIDFlag, "", "token id, decimal or 0x hex")
	_ = cmd.MarkFlagRequired(tokenIDFlag)
	return cmd
}

func newURICmd() *cobra.Command {
	var tokenID string
	cmd := &cobra.Command{
		Use:   "uri",
		Short: "Show the metadata URI of a token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			uri, err := rt.Service.TokenURI(cmd.Context(), tokenID)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"tokenId": tokenID, "uri": uri})
		},
	}
	cmd.Flags().StringVar(&tokenID, tokenIDFlag, "", "token id, decimal or 0x hex")
	_ = cmd.MarkFlagRequired(tokenIDFlag)
	return cmd
}

func newStatusCmd() *cobra.Command {
	var hash string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Look up the status of a submitted transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, err := setup(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := rt.Service.TransactionStatus(cmd.Context(), hash)
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
	cmd.Flags().StringVar(&hash, hashFlag, "", "transaction hash")
	_ = cmd.MarkFlagRequired(hashFlag)
	return cmd
}

func newImportKeyCmd() *cobra.Command {
	var (
		out     string
		account string
		keyEnv  string
		light   bool
	)
	cmd := &cobra.Command{
		Use:   "import-key",
		Short: "Encrypt a Stark private key into a key file",
		Long: `Reads the hex private key from the environment variable named by --key-env and the
passphrase from WALLET_KEYSTORE_PASSPHRASE, then writes an encrypted key file to --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			raw := os.Getenv(keyEnv)
			if raw == "" {
				return fmt.Errorf("%s is not set", keyEnv)
			}
			passphrase := os.Getenv("WALLET_KEYSTORE_PASSPHRASE")
			if passphrase == "" {
				return errors.New("WALLET_KEYSTORE_PASSPHRASE is not set")
			}
			if account == "" {
				account = os.Getenv("WALLET_ADDRESS")
			}

			key, err := stores.NewStarkKey(raw)
			if err != nil {
				return err
			}
			if err := stores.WriteKeyFile(out, account, key, passphrase, light); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"path":      out,
				"account":   account,
				"publicKey": fmt.Sprintf("0x%x", key.PublicKey()),
			})
		},
	}
	cmd.Flags().StringVar(&out, outFlag, "", "path of the key file to write")
	cmd.Flags().StringVar(&account, accountFlag, "", "account address the key controls (defaults to WALLET_ADDRESS)")
	cmd.Flags().StringVar(&keyEnv, keyEnvFlag, "WALLET_PRIVATE_KEY", "environment variable holding the hex private key")
	cmd.Flags().BoolVar(&light, lightFlag, false, "use cheap scrypt parameters (development only)")
	_ = cmd.MarkFlagRequired(outFlag)
	return cmd
}

// setup loads config and wires the chain stack. Without needSigner a missing wallet is
// tolerated and the runtime can only read.
func setup(ctx context.Context, needSigner bool) (*services.Runtime, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.New(cfg.Log.Level, true)

	var signer stores.Signer = stores.NoSigner{}
	if needSigner {
		if err := cfg.Validate(); err != nil {
			return nil, log, err
		}
		if signer, err = stores.LoadSigner(cfg.Wallet); err != nil {
			return nil, log, err
		}
	} else if err := cfg.ValidateRead(); err != nil {
		return nil, log, err
	}

	rt, err := services.Bootstrap(ctx, cfg, signer, log)
	if err != nil {
		return nil, log, err
	}
	return rt, log, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
