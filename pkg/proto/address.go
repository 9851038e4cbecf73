package proto

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/aquilaplatform/goaquila/pkg/crypto"
)

const (
	headerSize   = 2
	bodySize     = 20
	checksumSize = 4
	AddressSize  = headerSize + bodySize + checksumSize

	addressVersion byte = 0x01

	MainNetScheme Scheme = 'A'
	TestNetScheme Scheme = 'T'
)

// Address is an account identifier derived from a public key:
// a version byte, a chain scheme byte, a hash body and a checksum.
type Address [AddressSize]byte

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) MarshalJSON() ([]byte, error) {
	return B58Bytes(a[:]).MarshalJSON()
}

func (a *Address) UnmarshalJSON(value []byte) error {
	var b B58Bytes
	if err := b.UnmarshalJSON(value); err != nil {
		return err
	}
	if l := len(b); l != AddressSize {
		return fmt.Errorf("incorrect Address size %d, expected %d", l, AddressSize)
	}
	copy(a[:], b)
	return nil
}

// NewAddressFromPublicKey produces an Address from a public key and a chain scheme.
func NewAddressFromPublicKey(scheme Scheme, publicKey crypto.PublicKey) (Address, error) {
	var a Address
	a[0] = addressVersion
	a[1] = scheme
	h, err := crypto.SecureHash(publicKey[:])
	if err != nil {
		return a, errors.Wrap(err, "failed to produce Digest from PublicKey")
	}
	copy(a[headerSize:], h[:bodySize])
	cs, err := addressChecksum(a[:headerSize+bodySize])
	if err != nil {
		return a, errors.Wrap(err, "failed to calculate Address checksum")
	}
	copy(a[headerSize+bodySize:], cs)
	return a, nil
}

// NewAddressFromString creates an Address from its Base58 string representation and checks its validity.
func NewAddressFromString(s string) (Address, error) {
	var a Address
	b, err := base58.Decode(s)
	if err != nil {
		return a, errors.Wrap(err, "invalid Base58 string")
	}
	return NewAddressFromBytes(b)
}

// NewAddressFromBytes creates an Address from bytes and checks its validity.
func NewAddressFromBytes(b []byte) (Address, error) {
	var a Address
	if l := len(b); l < AddressSize {
		return a, fmt.Errorf("insufficient array length %d, expected at least %d", l, AddressSize)
	}
	copy(a[:], b[:AddressSize])
	if ok, err := a.Validate(); !ok {
		return a, fmt.Errorf("invalid address: %s", err.Error())
	}
	return a, nil
}

// Validate checks that the address version and checksum are correct.
func (a *Address) Validate() (bool, error) {
	if a[0] != addressVersion {
		return false, fmt.Errorf("unsupported address version %d", a[0])
	}
	hb := a[:headerSize+bodySize]
	ec, err := addressChecksum(hb)
	if err != nil {
		return false, errors.Wrap(err, "failed to calculate Address checksum")
	}
	ac := a[headerSize+bodySize:]
	if !bytes.Equal(ec, ac) {
		return false, errors.New("invalid Address checksum")
	}
	return true, nil
}

func addressChecksum(b []byte) ([]byte, error) {
	h, err := crypto.SecureHash(b)
	if err != nil {
		return nil, err
	}
	c := make([]byte, checksumSize)
	copy(c, h[:checksumSize])
	return c, nil
}
