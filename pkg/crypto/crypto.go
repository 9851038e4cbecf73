package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

const (
	DigestSize    = 32
	PublicKeySize = 32
	SecretKeySize = 32
	SignatureSize = 64
)

type Digest [DigestSize]byte

func (d Digest) String() string {
	return base58.Encode(d[:])
}

func (d Digest) Bytes() []byte {
	return d[:]
}

func (d Digest) MarshalJSON() ([]byte, error) {
	return toBase58JSON(d[:]), nil
}

func (d *Digest) UnmarshalJSON(value []byte) error {
	b, err := fromBase58JSON(value, DigestSize, "Digest")
	if err != nil {
		return err
	}
	copy(d[:], b)
	return nil
}

func NewDigestFromBase58(s string) (Digest, error) {
	var d Digest
	b, err := base58.Decode(s)
	if err != nil {
		return d, errors.Wrap(err, "invalid Base58 string")
	}
	return NewDigestFromBytes(b)
}

func NewDigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, errors.Errorf("invalid digest len %d", len(b))
	}
	copy(d[:], b)
	return d, nil
}

type SecretKey [SecretKeySize]byte

func (k SecretKey) String() string {
	return base58.Encode(k[:])
}

func (k SecretKey) Bytes() []byte {
	out := make([]byte, len(k))
	copy(out, k[:])
	return out
}

func NewSecretKeyFromBase58(s string) (SecretKey, error) {
	var k SecretKey
	b, err := base58.Decode(s)
	if err != nil {
		return k, errors.Wrap(err, "invalid Base58 string")
	}
	if len(b) != SecretKeySize {
		return k, errors.Errorf("invalid secret key len %d", len(b))
	}
	copy(k[:], b)
	return k, nil
}

type PublicKey [PublicKeySize]byte

func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

func (k PublicKey) Bytes() []byte {
	out := make([]byte, len(k))
	copy(out, k[:])
	return out
}

func (k PublicKey) MarshalJSON() ([]byte, error) {
	return toBase58JSON(k[:]), nil
}

func (k *PublicKey) UnmarshalJSON(value []byte) error {
	b, err := fromBase58JSON(value, PublicKeySize, "PublicKey")
	if err != nil {
		return err
	}
	copy(k[:], b)
	return nil
}

func NewPublicKeyFromBase58(s string) (PublicKey, error) {
	var k PublicKey
	b, err := base58.Decode(s)
	if err != nil {
		return k, errors.Wrap(err, "invalid Base58 string")
	}
	return NewPublicKeyFromBytes(b)
}

func NewPublicKeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != PublicKeySize {
		return k, errors.Errorf("invalid public key len %d", len(b))
	}
	copy(k[:], b)
	return k, nil
}

type Signature [SignatureSize]byte

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (s Signature) Bytes() []byte {
	out := make([]byte, len(s))
	copy(out, s[:])
	return out
}

func (s Signature) MarshalJSON() ([]byte, error) {
	return toBase58JSON(s[:]), nil
}

func (s *Signature) UnmarshalJSON(value []byte) error {
	b, err := fromBase58JSON(value, SignatureSize, "Signature")
	if err != nil {
		return err
	}
	copy(s[:], b)
	return nil
}

func NewSignatureFromBase58(s string) (Signature, error) {
	var sig Signature
	b, err := base58.Decode(s)
	if err != nil {
		return sig, errors.Wrap(err, "invalid Base58 string")
	}
	return NewSignatureFromBytes(b)
}

func NewSignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureSize {
		return sig, errors.Errorf("invalid signature len %d", len(b))
	}
	copy(sig[:], b)
	return sig, nil
}

func toBase58JSON(b []byte) []byte {
	s := base58.Encode(b)
	sb := make([]byte, 0, len(s)+2)
	sb = append(sb, '"')
	sb = append(sb, s...)
	sb = append(sb, '"')
	return sb
}

func fromBase58JSON(value []byte, size int, name string) ([]byte, error) {
	s, err := strconv.Unquote(string(value))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal %s from JSON", name)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s from Base58 string", name)
	}
	if len(b) != size {
		return nil, errors.Errorf("incorrect %s size %d, expected %d", name, len(b), size)
	}
	return b, nil
}

// FastHash is BLAKE2b-256, used for transaction and order identifiers.
func FastHash(data []byte) (Digest, error) {
	var digest Digest
	h, err := blake2b.New256(nil)
	if err != nil {
		return digest, err
	}
	h.Write(data)
	h.Sum(digest[:0])
	return digest, nil
}

func MustFastHash(data []byte) Digest {
	d, err := FastHash(data)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// SecureHash is Keccak256 over BLAKE2b-256, used for address bodies and checksums.
func SecureHash(data []byte) (Digest, error) {
	var digest Digest
	fh, err := blake2b.New256(nil)
	if err != nil {
		return digest, err
	}
	fh.Write(data)
	fh.Sum(digest[:0])
	h := sha3.NewLegacyKeccak256()
	h.Write(digest[:DigestSize])
	h.Sum(digest[:0])
	return digest, nil
}

// GenerateKeyPair derives a deterministic Ed25519 key pair from the given seed.
func GenerateKeyPair(seed []byte) (SecretKey, PublicKey, error) {
	var sk SecretKey
	var pk PublicKey
	h := sha256.New()
	if _, err := h.Write(seed); err != nil {
		return sk, pk, err
	}
	copy(sk[:], h.Sum(nil))
	pk = GeneratePublicKey(sk)
	return sk, pk, nil
}

func GeneratePublicKey(sk SecretKey) PublicKey {
	var pk PublicKey
	priv := ed25519.NewKeyFromSeed(sk[:])
	copy(pk[:], priv.Public().(ed25519.PublicKey))
	return pk
}

func Sign(secretKey SecretKey, data []byte) Signature {
	var sig Signature
	priv := ed25519.NewKeyFromSeed(secretKey[:])
	copy(sig[:], ed25519.Sign(priv, data))
	return sig
}

func Verify(publicKey PublicKey, signature Signature, data []byte) bool {
	return ed25519.Verify(publicKey[:], data, signature[:])
}
