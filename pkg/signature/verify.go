package signature

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

// Verify checks a 0x-prefixed hex signature against a message and public key.
func Verify(pub ed25519.PublicKey, message, sigHex string) (bool, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) != ed25519.SignatureSize {
		return false, fmt.Errorf("signature must be %d bytes, got %d", ed25519.SignatureSize, len(raw))
	}
	return ed25519.Verify(pub, []byte(message), raw), nil
}
