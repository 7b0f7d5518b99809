// Package ledger provides the simulated blockchain anchoring used for
// certificates: content hashes, IPFS style content ids and RS256 signatures.
package ledger

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	ipfsBodyLen    = 44
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNoSigningKey     = errors.New("ledger has no signing key")

	hashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)
	ipfsPattern = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`)
)

// Hash returns 0x followed by the lowercase hex SHA-256 of v's JSON encoding.
// Struct fields are encoded in declaration order and map keys sorted, so equal
// values always produce equal hashes.
func Hash(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return HashBytes(b), nil
}

func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "0x" + hex.EncodeToString(sum[:])
}

func IsHash(s string) bool {
	return hashPattern.MatchString(strings.ToLower(s))
}

// IPFSHash returns a random content id shaped like a CIDv0. It does not
// address real content.
func IPFSHash() (string, error) {
	var sb strings.Builder
	sb.Grow(2 + ipfsBodyLen)
	sb.WriteString("Qm")
	max := big.NewInt(int64(len(base58Alphabet)))
	for i := 0; i < ipfsBodyLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(base58Alphabet[n.Int64()])
	}
	return sb.String(), nil
}

func IsIPFSHash(s string) bool {
	return ipfsPattern.MatchString(s)
}

type Ledger struct {
	priv *rsa.PrivateKey
	pub  *rsa.PublicKey
}

func New(priv *rsa.PrivateKey, pub *rsa.PublicKey) *Ledger {
	if pub == nil && priv != nil {
		pub = &priv.PublicKey
	}
	return &Ledger{priv: priv, pub: pub}
}

// Sign returns the base64url RS256 signature of hash.
func (l *Ledger) Sign(hash string) (string, error) {
	if l.priv == nil {
		return "", ErrNoSigningKey
	}
	sig, err := jwt.SigningMethodRS256.Sign(strings.ToLower(hash), l.priv)
	if err != nil {
		return "", fmt.Errorf("sign hash: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

func (l *Ledger) Verify(hash, signature string) error {
	if l.pub == nil {
		return ErrNoSigningKey
	}
	sig, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}
	if err := jwt.SigningMethodRS256.Verify(strings.ToLower(hash), sig, l.pub); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// Anchor hashes v and signs the hash.
func (l *Ledger) Anchor(v any) (hash, signature string, err error) {
	hash, err = Hash(v)
	if err != nil {
		return "", "", err
	}
	signature, err = l.Sign(hash)
	return hash, signature, err
}

func (l *Ledger) Algorithm() string {
	return jwt.SigningMethodRS256.Alg()
}
