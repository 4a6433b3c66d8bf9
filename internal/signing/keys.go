package signing

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

const (
	wifVersion     = 0x80
	k1PrivPrefix   = "PVT_K1_"
	k1SigPrefix    = "SIG_K1_"
	legacyPubPrefx = "EOS"
	k1Suffix       = "K1"
	checksumSize   = 4
)

var (
	ErrMalformedKey = errors.New("malformed private key")
	ErrChecksum     = errors.New("private key checksum mismatch")
)

// ParsePrivateKey accepts a legacy WIF key or a PVT_K1_ key.
func ParsePrivateKey(secret string) (*secp256k1.PrivateKey, error) {
	secret = strings.TrimSpace(secret)
	if rest, ok := strings.CutPrefix(secret, k1PrivPrefix); ok {
		return parseK1(rest)
	}
	return parseWIF(secret)
}

func parseWIF(s string) (*secp256k1.PrivateKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(raw) != 1+secp256k1.PrivKeyBytesLen+checksumSize || raw[0] != wifVersion {
		return nil, ErrMalformedKey
	}
	body, sum := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]
	if !bytes.Equal(doubleSHA256(body)[:checksumSize], sum) {
		return nil, ErrChecksum
	}
	return secp256k1.PrivKeyFromBytes(body[1:]), nil
}

func parseK1(s string) (*secp256k1.PrivateKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(raw) != secp256k1.PrivKeyBytesLen+checksumSize {
		return nil, ErrMalformedKey
	}
	body, sum := raw[:secp256k1.PrivKeyBytesLen], raw[secp256k1.PrivKeyBytesLen:]
	if !bytes.Equal(ripemdChecksum(body, k1Suffix), sum) {
		return nil, ErrChecksum
	}
	return secp256k1.PrivKeyFromBytes(body), nil
}

// EncodeWIF renders key in the legacy wallet import format.
func EncodeWIF(key *secp256k1.PrivateKey) string {
	body := append([]byte{wifVersion}, key.Serialize()...)
	return base58.Encode(append(body, doubleSHA256(body)[:checksumSize]...))
}

// EncodePublicKey renders the legacy EOS-prefixed public key string.
func EncodePublicKey(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeCompressed()
	return legacyPubPrefx + base58.Encode(append(raw, ripemdChecksum(raw, "")...))
}

func encodeSignature(sig []byte) string {
	return k1SigPrefix + base58.Encode(append(append([]byte(nil), sig...), ripemdChecksum(sig, k1Suffix)...))
}

// DecodeSignature parses a SIG_K1_ string back into its 65 compact bytes.
func DecodeSignature(s string) ([]byte, error) {
	rest, ok := strings.CutPrefix(s, k1SigPrefix)
	if !ok {
		return nil, fmt.Errorf("signature %q: missing %s prefix", s, k1SigPrefix)
	}
	raw, err := base58.Decode(rest)
	if err != nil {
		return nil, err
	}
	if len(raw) != 65+checksumSize {
		return nil, fmt.Errorf("signature length %d", len(raw))
	}
	sig, sum := raw[:65], raw[65:]
	if !bytes.Equal(ripemdChecksum(sig, k1Suffix), sum) {
		return nil, errors.New("signature checksum mismatch")
	}
	return sig, nil
}

func doubleSHA256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

func ripemdChecksum(b []byte, suffix string) []byte {
	h := ripemd160.New()
	h.Write(b)
	h.Write([]byte(suffix))
	return h.Sum(nil)[:checksumSize]
}
