package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/NethermindEth/starknet.go/curve"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/google/uuid"

	"nftrelay/service/internal/config"
	"nftrelay/service/internal/utils/address"
)

// Order of the Stark curve group; private keys live in [1, starkOrder).
var starkOrder, _ = new(big.Int).SetString("800000000000010ffffffffffffffffb781126dcae7b2321e66a241adc64d2f", 16)

var (
	ErrInvalidPrivateKey = errors.New("invalid stark private key")
	ErrKeyFileVersion    = errors.New("unsupported key file version")
	ErrNoCredential      = errors.New("no signing credential configured")
	ErrAccountMismatch   = errors.New("key file belongs to a different account")
)

const keyFileVersion = 1

// Signer signs Starknet transaction hashes with the service's single credential.
type Signer interface {
	Sign(ctx context.Context, hash *big.Int) (r, s *big.Int, err error)
	PublicKey() *big.Int
}

// StarkKey is an in-memory Stark curve private key. It is never mutated after creation.
type StarkKey struct {
	priv *big.Int
	pub  *big.Int
}

func NewStarkKey(hexKey string) (*StarkKey, error) {
	hexKey = strings.TrimSpace(hexKey)
	hexKey = strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")
	priv, ok := new(big.Int).SetString(hexKey, 16)
	if !ok {
		return nil, fmt.Errorf("%w: not hex", ErrInvalidPrivateKey)
	}
	return newStarkKey(priv)
}

func newStarkKey(priv *big.Int) (*StarkKey, error) {
	if priv.Sign() <= 0 || priv.Cmp(starkOrder) >= 0 {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidPrivateKey)
	}
	x, _, err := curve.Curve.PrivateToPoint(priv)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	return &StarkKey{priv: new(big.Int).Set(priv), pub: x}, nil
}

func (k *StarkKey) Sign(ctx context.Context, hash *big.Int) (*big.Int, *big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	r, s, err := curve.Curve.Sign(hash, k.priv)
	if err != nil {
		return nil, nil, fmt.Errorf("stark sign: %w", err)
	}
	return r, s, nil
}

// PublicKey returns the x coordinate of the public point, the form Starknet accounts store.
func (k *StarkKey) PublicKey() *big.Int {
	return new(big.Int).Set(k.pub)
}

type keyFile struct {
	Version int                 `json:"version"`
	ID      string              `json:"id"`
	Account string              `json:"account"`
	Crypto  keystore.CryptoJSON `json:"crypto"`
}

// WriteKeyFile encrypts the key with the same scrypt/AES-CTR scheme as an Ethereum V3
// keystore and writes it to path with 0600 permissions. light selects the cheaper
// scrypt parameters, meant for tests and development.
func WriteKeyFile(path string, account string, key *StarkKey, passphrase string, light bool) error {
	normalized, err := address.Normalize(account)
	if err != nil {
		return err
	}

	scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
	if light {
		scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	}

	cryptoJSON, err := keystore.EncryptDataV3(key.priv.FillBytes(make([]byte, 32)), []byte(passphrase), scryptN, scryptP)
	if err != nil {
		return fmt.Errorf("encrypt key: %w", err)
	}

	blob, err := json.MarshalIndent(keyFile{
		Version: keyFileVersion,
		ID:      uuid.NewString(),
		Account: normalized,
		Crypto:  cryptoJSON,
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o600)
}

// LoadKeyFile decrypts a key file written by WriteKeyFile and returns the key together
// with the account address it was stored for.
func LoadKeyFile(path string, passphrase string) (*StarkKey, string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var kf keyFile
	if err := json.Unmarshal(blob, &kf); err != nil {
		return nil, "", fmt.Errorf("decode key file: %w", err)
	}
	if kf.Version != keyFileVersion {
		return nil, "", fmt.Errorf("%w: %d", ErrKeyFileVersion, kf.Version)
	}

	raw, err := keystore.DecryptDataV3(kf.Crypto, passphrase)
	if err != nil {
		return nil, "", fmt.Errorf("decrypt key file: %w", err)
	}
	key, err := newStarkKey(new(big.Int).SetBytes(raw))
	if err != nil {
		return nil, "", err
	}
	return key, kf.Account, nil
}

// NoSigner stands in for a credential in read-only tools. Sign always fails.
type NoSigner struct{}

func (NoSigner) Sign(ctx context.Context, hash *big.Int) (*big.Int, *big.Int, error) {
	return nil, nil, ErrNoCredential
}

func (NoSigner) PublicKey() *big.Int { return new(big.Int) }

// LoadSigner builds the signer described by the wallet config: a raw private key, or an
// encrypted key file whose account must match the configured address.
func LoadSigner(cfg config.WalletConfig) (Signer, error) {
	switch {
	case cfg.PrivateKey != "":
		return NewStarkKey(cfg.PrivateKey)
	case cfg.KeystorePath != "":
		key, account, err := LoadKeyFile(cfg.KeystorePath, cfg.KeystorePassphrase)
		if err != nil {
			return nil, err
		}
		if cfg.Address != "" {
			want, err := address.Normalize(cfg.Address)
			if err != nil {
				return nil, err
			}
			if want != account {
				return nil, fmt.Errorf("%w: %s, configured %s", ErrAccountMismatch, account, want)
			}
		}
		return key, nil
	default:
		return nil, ErrNoCredential
	}
}
