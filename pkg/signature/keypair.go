// Package signature loads validator keys and signs outbound payloads.
package signature

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	bip39 "github.com/cosmos/go-bip39"
	"github.com/rs/zerolog/log"
)

// LoadMnemonic reads the secret phrase out of a keystore JSON file.
func LoadMnemonic(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		usr, err := user.Current()
		if err != nil {
			return "", fmt.Errorf("failed to get current user: %w", err)
		}
		path = filepath.Join(usr.HomeDir, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to read keystore file")
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var result map[string]interface{}
	if err := sonic.Unmarshal(data, &result); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to parse keystore JSON")
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}

	seed, ok := result["secretPhrase"]
	if !ok {
		return "", fmt.Errorf("secretPhrase not found in JSON")
	}
	phrase, ok := seed.(string)
	if !ok {
		return "", fmt.Errorf("secretPhrase is not a string")
	}
	return phrase, nil
}

// KeypairFromMnemonic derives an ed25519 keypair from a BIP-39 mnemonic.
// Move-based accounts sign with ed25519, so the 32-byte key seed is taken
// from the first half of the BIP-39 seed.
func KeypairFromMnemonic(mnemonic string) (ed25519.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")
	priv := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	return priv, nil
}

// LoadKeypair reads a keystore file and derives the signing keypair.
func LoadKeypair(path string) (ed25519.PrivateKey, error) {
	mnemonic, err := LoadMnemonic(path)
	if err != nil {
		return nil, err
	}
	return KeypairFromMnemonic(mnemonic)
}

// AddressFromPublicKey derives the account address as the sha256 of the
// public key appended with the ed25519 scheme byte, hex encoded with 0x.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	h := sha256.Sum256(append([]byte(pub), 0x00))
	return "0x" + hexEncode(h[:])
}
