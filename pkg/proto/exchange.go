package proto

import (
	"encoding/binary"

	"github.com/ccoveille/go-safecast"
	"github.com/pkg/errors"

	"github.com/aquilaplatform/goaquila/pkg/crypto"
	"github.com/aquilaplatform/goaquila/pkg/errs"
)

// exchangeMatchTailLen is the length of the six fixed numeric fields of the signable body.
const exchangeMatchTailLen = 8 + 8 + 8 + 8 + 8 + 8

// ExchangeMatch is a matcher-signed transaction settling part or all of one buy
// order against one sell order at an agreed execution price and amount.
//
// The signable body layout is, big-endian:
//
//	[uint32 buyOrderLen][uint32 sellOrderLen][buyOrderBytes][sellOrderBytes]
//	[uint64 price][uint64 amount][uint64 buyMatcherFee][uint64 sellMatcherFee]
//	[uint64 fee][uint64 timestamp]
//
// The wire form appends the matcher's signature after the signable body.
type ExchangeMatch struct {
	ID             *crypto.Digest    `json:"id,omitempty"`
	Signature      *crypto.Signature `json:"signature,omitempty"`
	SenderPK       crypto.PublicKey  `json:"senderPublicKey"`
	BuyOrder       Order             `json:"order1"`
	SellOrder      Order             `json:"order2"`
	Price          uint64            `json:"price"`
	Amount         uint64            `json:"amount"`
	BuyMatcherFee  uint64            `json:"buyMatcherFee"`
	SellMatcherFee uint64            `json:"sellMatcherFee"`
	Fee            uint64            `json:"fee"`
	Timestamp      uint64            `json:"timestamp,omitempty"`
}

// NewUnsignedExchangeMatch creates a new settlement transaction with empty ID and
// Signature fields. The sender is the matcher of the buy order.
func NewUnsignedExchangeMatch(buy, sell Order, price, amount, buyMatcherFee, sellMatcherFee, fee, timestamp uint64) *ExchangeMatch {
	return &ExchangeMatch{
		SenderPK:       buy.MatcherPK,
		BuyOrder:       buy,
		SellOrder:      sell,
		Price:          price,
		Amount:         amount,
		BuyMatcherFee:  buyMatcherFee,
		SellMatcherFee: sellMatcherFee,
		Fee:            fee,
		Timestamp:      timestamp,
	}
}

// GetID returns the transaction ID, calculating it first if necessary.
func (tx *ExchangeMatch) GetID() ([]byte, error) {
	if tx.ID == nil {
		if err := tx.GenerateID(); err != nil {
			return nil, err
		}
	}
	return tx.ID.Bytes(), nil
}

// BodyMarshalBinary returns the canonical signable body of the transaction.
func (tx *ExchangeMatch) BodyMarshalBinary() ([]byte, error) {
	bob, err := tx.BuyOrder.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal buy order to bytes")
	}
	sob, err := tx.SellOrder.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal sell order to bytes")
	}
	bol, err := safecast.ToUint32(len(bob))
	if err != nil {
		return nil, errors.Wrap(err, "buy order is too big")
	}
	sol, err := safecast.ToUint32(len(sob))
	if err != nil {
		return nil, errors.Wrap(err, "sell order is too big")
	}
	var p int
	buf := make([]byte, 4+4+len(bob)+len(sob)+exchangeMatchTailLen)
	binary.BigEndian.PutUint32(buf, bol)
	p += 4
	binary.BigEndian.PutUint32(buf[p:], sol)
	p += 4
	copy(buf[p:], bob)
	p += len(bob)
	copy(buf[p:], sob)
	p += len(sob)
	binary.BigEndian.PutUint64(buf[p:], tx.Price)
	p += 8
	binary.BigEndian.PutUint64(buf[p:], tx.Amount)
	p += 8
	binary.BigEndian.PutUint64(buf[p:], tx.BuyMatcherFee)
	p += 8
	binary.BigEndian.PutUint64(buf[p:], tx.SellMatcherFee)
	p += 8
	binary.BigEndian.PutUint64(buf[p:], tx.Fee)
	p += 8
	binary.BigEndian.PutUint64(buf[p:], tx.Timestamp)
	return buf, nil
}

// bodyUnmarshalBinary reads the signable body from data and returns the number of
// bytes consumed.
func (tx *ExchangeMatch) bodyUnmarshalBinary(data []byte) (int, error) {
	if l := len(data); l < 4+4 {
		return 0, errors.Errorf("not enough data for ExchangeMatch body, expected not less then %d, received %d", 4+4, l)
	}
	n := 0
	bol := int(binary.BigEndian.Uint32(data[n:]))
	n += 4
	sol := int(binary.BigEndian.Uint32(data[n:]))
	n += 4
	if l := len(data); l < n+bol+sol+exchangeMatchTailLen {
		return 0, errors.Errorf("not enough data for ExchangeMatch body, expected %d, received %d", n+bol+sol+exchangeMatchTailLen, l)
	}
	if err := tx.BuyOrder.UnmarshalBinary(data[n : n+bol]); err != nil {
		return 0, errors.Wrap(err, "failed to unmarshal buy order")
	}
	if s := tx.BuyOrder.BinarySize(); s != bol {
		return 0, errors.Errorf("declared buy order length %d does not match actual %d", bol, s)
	}
	n += bol
	if err := tx.SellOrder.UnmarshalBinary(data[n : n+sol]); err != nil {
		return 0, errors.Wrap(err, "failed to unmarshal sell order")
	}
	if s := tx.SellOrder.BinarySize(); s != sol {
		return 0, errors.Errorf("declared sell order length %d does not match actual %d", sol, s)
	}
	n += sol
	tx.Price = binary.BigEndian.Uint64(data[n:])
	n += 8
	tx.Amount = binary.BigEndian.Uint64(data[n:])
	n += 8
	tx.BuyMatcherFee = binary.BigEndian.Uint64(data[n:])
	n += 8
	tx.SellMatcherFee = binary.BigEndian.Uint64(data[n:])
	n += 8
	tx.Fee = binary.BigEndian.Uint64(data[n:])
	n += 8
	tx.Timestamp = binary.BigEndian.Uint64(data[n:])
	n += 8
	tx.SenderPK = tx.BuyOrder.MatcherPK
	return n, nil
}

// GenerateID calculates the hash of the signable body and sets it as the transaction ID.
func (tx *ExchangeMatch) GenerateID() error {
	body, err := tx.BodyMarshalBinary()
	if err != nil {
		return errors.Wrap(err, "failed to generate ID of ExchangeMatch transaction")
	}
	id := crypto.MustFastHash(body)
	tx.ID = &id
	return nil
}

// Sign signs the canonical body with the given secret key and sets the
// transaction's Signature and ID.
func (tx *ExchangeMatch) Sign(secretKey crypto.SecretKey) error {
	b, err := tx.BodyMarshalBinary()
	if err != nil {
		return errors.Wrap(err, "failed to sign ExchangeMatch transaction")
	}
	s := crypto.Sign(secretKey, b)
	tx.Signature = &s
	d, err := crypto.FastHash(b)
	if err != nil {
		return errors.Wrap(err, "failed to sign ExchangeMatch transaction")
	}
	tx.ID = &d
	return nil
}

// Verify checks that the Signature is valid for the given public key.
func (tx *ExchangeMatch) Verify(publicKey crypto.PublicKey) (bool, error) {
	if tx.Signature == nil {
		return false, errors.New("empty signature")
	}
	b, err := tx.BodyMarshalBinary()
	if err != nil {
		return false, errors.Wrap(err, "failed to verify ExchangeMatch transaction")
	}
	return crypto.Verify(publicKey, *tx.Signature, b), nil
}

func (tx *ExchangeMatch) BinarySize() int {
	return 4 + 4 + tx.BuyOrder.BinarySize() + tx.SellOrder.BinarySize() + exchangeMatchTailLen + crypto.SignatureSize
}

// MarshalBinary returns the wire form: the signable body followed by the signature.
func (tx *ExchangeMatch) MarshalBinary() ([]byte, error) {
	b, err := tx.BodyMarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal ExchangeMatch transaction to bytes")
	}
	if tx.Signature == nil {
		return nil, errors.New("failed to marshal ExchangeMatch transaction to bytes: no signature")
	}
	buf := make([]byte, len(b)+crypto.SignatureSize)
	copy(buf, b)
	copy(buf[len(b):], tx.Signature[:])
	return buf, nil
}

// UnmarshalBinary reads the wire form. Any truncation, inner order decode failure
// or length mismatch yields a DecodeError.
func (tx *ExchangeMatch) UnmarshalBinary(data []byte) error {
	bl, err := tx.bodyUnmarshalBinary(data)
	if err != nil {
		return errs.NewDecodeError(errors.Wrap(err, "failed to unmarshal ExchangeMatch transaction from bytes").Error())
	}
	if l := len(data) - bl; l != crypto.SignatureSize {
		return errs.NewDecodeError(errors.Errorf("invalid signature length %d, expected %d", l, crypto.SignatureSize).Error())
	}
	var s crypto.Signature
	copy(s[:], data[bl:])
	tx.Signature = &s
	d, err := crypto.FastHash(data[:bl])
	if err != nil {
		return errs.NewDecodeError(errors.Wrap(err, "failed to unmarshal ExchangeMatch transaction from bytes").Error())
	}
	tx.ID = &d
	return nil
}
