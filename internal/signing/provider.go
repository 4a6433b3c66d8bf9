// Package signing supplies the default signing capability: a secp256k1 key
// decoded from the session secret, producing SIG_K1_ signatures.
package signing

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"cardgame/go-client/internal/rpckit"
)

const (
	compactMagic      = 27
	compactCompressed = 4
	maxNonceAttempts  = 256
)

// Provider signs 32-byte transaction digests on behalf of one account key.
type Provider interface {
	PublicKey() string
	Sign(digest []byte) (string, error)
}

// Factory builds a Provider scoped to one secret.
type Factory func(secret string) (Provider, error)

type K1Provider struct {
	key *secp256k1.PrivateKey
}

// NewK1Provider is the default Factory. Malformed secrets fail with a signing error.
func NewK1Provider(secret string) (Provider, error) {
	key, err := ParsePrivateKey(secret)
	if err != nil {
		return nil, rpckit.Signing(err)
	}
	return &K1Provider{key: key}, nil
}

// GenerateKey returns a fresh WIF secret and its public key.
func GenerateKey() (wif string, publicKey string, err error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", "", err
	}
	return EncodeWIF(key), EncodePublicKey(key.PubKey()), nil
}

func (p *K1Provider) PublicKey() string {
	return EncodePublicKey(p.key.PubKey())
}

// Sign returns a canonical compact signature over digest. Nodes reject
// signatures whose r or s needs a 33rd byte in DER form, so RFC 6979 nonces
// are drawn until one yields a canonical pair.
func (p *K1Provider) Sign(digest []byte) (string, error) {
	if len(digest) != 32 {
		return "", rpckit.Signing(errors.New("digest must be 32 bytes"))
	}
	for i := uint32(0); i < maxNonceAttempts; i++ {
		sig, ok := signCompact(p.key, digest, i)
		if ok && isCanonical(sig) {
			return encodeSignature(sig), nil
		}
	}
	return "", rpckit.Signing(fmt.Errorf("no canonical signature after %d nonces", maxNonceAttempts))
}

// signCompact signs with the nonce RFC 6979 yields after extra iterations and
// returns the 65-byte recoverable form for a compressed public key.
func signCompact(key *secp256k1.PrivateKey, digest []byte, extra uint32) ([]byte, bool) {
	privBytes := key.Serialize()
	k := secp256k1.NonceRFC6979(privBytes, digest, nil, nil, extra)
	defer k.Zero()
	for i := range privBytes {
		privBytes[i] = 0
	}

	var R secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(k, &R)
	R.ToAffine()

	var r secp256k1.ModNScalar
	overflow := r.SetBytes(R.X.Bytes())
	if r.IsZero() {
		return nil, false
	}
	recovery := byte(overflow << 1)
	if R.Y.IsOdd() {
		recovery |= 1
	}

	var e secp256k1.ModNScalar
	e.SetByteSlice(digest)
	kinv := new(secp256k1.ModNScalar).InverseValNonConst(k)
	s := new(secp256k1.ModNScalar).Mul2(&key.Key, &r).Add(&e).Mul(kinv)
	if s.IsZero() {
		return nil, false
	}
	if s.IsOverHalfOrder() {
		s.Negate()
		recovery ^= 1
	}

	sig := make([]byte, 65)
	sig[0] = compactMagic + compactCompressed + recovery
	rb, sb := r.Bytes(), s.Bytes()
	copy(sig[1:33], rb[:])
	copy(sig[33:65], sb[:])
	return sig, true
}

// isCanonical reports whether neither r nor s in the compact signature has its
// top bit set or a redundant leading zero.
func isCanonical(sig []byte) bool {
	return sig[1]&0x80 == 0 &&
		!(sig[1] == 0 && sig[2]&0x80 == 0) &&
		sig[33]&0x80 == 0 &&
		!(sig[33] == 0 && sig[34]&0x80 == 0)
}
