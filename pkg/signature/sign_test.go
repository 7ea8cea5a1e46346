package signature

import (
	"crypto/ed25519"
	"strings"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestKeypairFromMnemonic(t *testing.T) {
	priv, err := KeypairFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatalf("keypair from mnemonic: %v", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		t.Fatalf("unexpected key size %d", len(priv))
	}

	// same mnemonic must derive the same key
	again, err := KeypairFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatalf("keypair from mnemonic: %v", err)
	}
	if !priv.Equal(again) {
		t.Fatalf("derivation is not deterministic")
	}
}

func TestKeypairFromMnemonic_Invalid(t *testing.T) {
	if _, err := KeypairFromMnemonic("not a mnemonic"); err == nil {
		t.Fatalf("expected error for invalid mnemonic")
	}
}

func TestSignAndVerify(t *testing.T) {
	priv, err := KeypairFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	p, err := NewProvider(priv)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}

	sig, err := p.Sign("hello miners")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") {
		t.Fatalf("signature missing 0x prefix: %s", sig)
	}

	ok, err := Verify(priv.Public().(ed25519.PublicKey), "hello miners", sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("signature did not verify")
	}

	ok, err = Verify(priv.Public().(ed25519.PublicKey), "different message", sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("signature verified against wrong message")
	}
}

func TestAddressFromPublicKey(t *testing.T) {
	priv, _ := KeypairFromMnemonic(testMnemonic)
	addr := AddressFromPublicKey(priv.Public().(ed25519.PublicKey))
	if !strings.HasPrefix(addr, "0x") || len(addr) != 2+64 {
		t.Fatalf("unexpected address format: %s", addr)
	}
}
