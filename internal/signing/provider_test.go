package signing

import (
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/mr-tron/base58"

	"cardgame/go-client/internal/rpckit"
)

// Well-known development key pair shipped with local ledger nodes.
const (
	devWIF    = "5KQwrPbwdL6PhXujxW37FSSQZ1JiwsST4cqQzDeyXtP79zkvFD3"
	devPubKey = "EOS6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV"
)

func TestParseWIFMatchesKnownPublicKey(t *testing.T) {
	p, err := NewK1Provider(devWIF)
	if err != nil {
		t.Fatalf("parse dev key failed: %v", err)
	}
	if got := p.PublicKey(); got != devPubKey {
		t.Fatalf("unexpected public key %s", got)
	}
}

func TestWIFRoundtrip(t *testing.T) {
	wif, pub, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(wif) != 51 {
		t.Fatalf("expected 51-char WIF, got %d", len(wif))
	}
	p, err := NewK1Provider(wif)
	if err != nil {
		t.Fatalf("parse generated key failed: %v", err)
	}
	if p.PublicKey() != pub {
		t.Fatalf("public key mismatch: %s != %s", p.PublicKey(), pub)
	}
}

func TestParseK1PrivateKey(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	raw := key.Serialize()
	k1 := k1PrivPrefix + base58.Encode(append(raw, ripemdChecksum(raw, k1Suffix)...))
	parsed, err := ParsePrivateKey(k1)
	if err != nil {
		t.Fatalf("parse PVT_K1 failed: %v", err)
	}
	if !parsed.PubKey().IsEqual(key.PubKey()) {
		t.Fatal("parsed key differs from source key")
	}
}

func TestMalformedSecretIsSigningFailure(t *testing.T) {
	for _, secret := range []string{"", strings.Repeat("K", 51), "0OIl", devWIF[:50] + "4"} {
		_, err := NewK1Provider(secret)
		if rpckit.KindOf(err) != rpckit.KindSigning {
			t.Fatalf("secret %q: expected signing failure, got %v", secret, err)
		}
	}
	_, err := NewK1Provider(devWIF[:50] + "4")
	if !errors.Is(err, ErrChecksum) && !errors.Is(err, ErrMalformedKey) {
		t.Fatalf("expected key decoding error in chain, got %v", err)
	}
}

func TestSignatureRecoversSignerKey(t *testing.T) {
	p, err := NewK1Provider(devWIF)
	if err != nil {
		t.Fatalf("parse dev key failed: %v", err)
	}
	digest := sha256.Sum256([]byte("transaction bytes"))
	sig, err := p.Sign(digest[:])
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if !strings.HasPrefix(sig, "SIG_K1_") {
		t.Fatalf("unexpected signature format %s", sig)
	}
	compact, err := DecodeSignature(sig)
	if err != nil {
		t.Fatalf("decode signature failed: %v", err)
	}
	pub, compressed, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if !compressed {
		t.Fatal("expected compressed key flag")
	}
	if EncodePublicKey(pub) != devPubKey {
		t.Fatalf("recovered key %s does not match signer", EncodePublicKey(pub))
	}
}

func TestSignRejectsShortDigest(t *testing.T) {
	p, err := NewK1Provider(devWIF)
	if err != nil {
		t.Fatalf("parse dev key failed: %v", err)
	}
	if _, err := p.Sign([]byte("short")); rpckit.KindOf(err) != rpckit.KindSigning {
		t.Fatalf("expected signing failure, got %v", err)
	}
}

func TestSignAlwaysCanonicalAndRecoverable(t *testing.T) {
	p, err := NewK1Provider(devWIF)
	if err != nil {
		t.Fatalf("parse dev key failed: %v", err)
	}
	key, _ := ParsePrivateKey(devWIF)
	for i := 0; i < 64; i++ {
		digest := sha256.Sum256([]byte{byte(i), 'x'})
		sig, err := p.Sign(digest[:])
		if err != nil {
			t.Fatalf("sign %d failed: %v", i, err)
		}
		compact, err := DecodeSignature(sig)
		if err != nil {
			t.Fatalf("decode %d failed: %v", i, err)
		}
		if !isCanonical(compact) {
			t.Fatalf("signature %d is not canonical: %x", i, compact)
		}
		pub, _, err := ecdsa.RecoverCompact(compact, digest[:])
		if err != nil || EncodePublicKey(pub) != devPubKey {
			t.Fatalf("signature %d does not recover the signer: %v", i, err)
		}
		// The first nonce is plain RFC 6979, so a canonical library signature
		// must come out byte for byte.
		if ref := ecdsa.SignCompact(key, digest[:], true); isCanonical(ref) && string(ref) != string(compact) {
			t.Fatalf("signature %d differs from the RFC 6979 reference", i)
		}
	}
}

func TestIsCanonical(t *testing.T) {
	sig := make([]byte, 65)
	sig[1], sig[33] = 0x10, 0x10
	if !isCanonical(sig) {
		t.Fatal("expected canonical signature")
	}
	high := append([]byte(nil), sig...)
	high[1] = 0x80
	if isCanonical(high) {
		t.Fatal("r with top bit set must not be canonical")
	}
	padded := append([]byte(nil), sig...)
	padded[33], padded[34] = 0, 0x10
	if isCanonical(padded) {
		t.Fatal("s with a redundant leading zero must not be canonical")
	}
	padded[34] = 0x90
	if !isCanonical(padded) {
		t.Fatal("a leading zero before a high byte is canonical")
	}
}
