package flow

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSignatureRejected is returned by a Wallet when the user dismisses the
// signature prompt.
var ErrSignatureRejected = errors.New("signature request rejected")

// Wallet is the external wallet widget the flows drive. Connect may block
// until the user picks a wallet; SignMessage may block until the extension
// responds or the user rejects.
type Wallet interface {
	Connect(ctx context.Context) (string, error)
	SignMessage(ctx context.Context, message string) (string, error)
}

// KeyWallet is a Wallet over a raw secp256k1 private key. It backs the CLI
// and the tests; browser users bring their own extension.
type KeyWallet struct {
	key *ecdsa.PrivateKey
}

func NewKeyWallet(hexKey string) (*KeyWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, err
	}
	return &KeyWallet{key: key}, nil
}

// GenerateKeyWallet creates a wallet with a fresh random key.
func GenerateKeyWallet() (*KeyWallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &KeyWallet{key: key}, nil
}

func (w *KeyWallet) Address() string {
	return crypto.PubkeyToAddress(w.key.PublicKey).Hex()
}

func (w *KeyWallet) Connect(ctx context.Context) (string, error) {
	return w.Address(), nil
}

// SignMessage signs with the EIP-191 personal_sign scheme, emitting V as
// 27/28 the way browser wallets do.
func (w *KeyWallet) SignMessage(ctx context.Context, message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
