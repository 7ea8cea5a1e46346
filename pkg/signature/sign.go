package signature

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// Provider signs messages with the validator's ed25519 keypair.
type Provider struct {
	priv    ed25519.PrivateKey
	address string
}

// NewProvider creates a new signature provider from a private key.
func NewProvider(priv ed25519.PrivateKey) (*Provider, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key not initialized")
	}
	return &Provider{
		priv:    priv,
		address: AddressFromPublicKey(priv.Public().(ed25519.PublicKey)),
	}, nil
}

// Sign returns the hex-encoded signature of message with 0x prefix.
func (p *Provider) Sign(message string) (string, error) {
	if p.priv == nil {
		return "", fmt.Errorf("private key not initialized")
	}
	sig := ed25519.Sign(p.priv, []byte(message))
	return "0x" + hex.EncodeToString(sig), nil
}

// Address returns the account address of the signing key.
func (p *Provider) Address() string {
	return p.address
}

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}
