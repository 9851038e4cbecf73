package proto

import (
	"encoding/binary"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/aquilaplatform/goaquila/pkg/crypto"
)

const (
	// AqlAssetName is the default name of the native AQL asset.
	AqlAssetName       = "AQL"
	quotedAqlAssetName = "\"" + AqlAssetName + "\""
	jsonNull           = "null"

	orderLen    = crypto.PublicKeySize + crypto.PublicKeySize + 1 + 1 + 1 + 8 + 8 + 8 + 8 + 8
	orderMinLen = orderLen + crypto.SignatureSize

	// PriceConstant scales an order's integer price field: a fill of amount units
	// of the amount asset moves floor(amount*PriceConstant/price) units of the
	// price asset.
	PriceConstant = 100000000
	// MaxOrderAmount bounds every amount, price and fee field so that any product of
	// two of them fits a 128-bit intermediate.
	MaxOrderAmount = 100 * PriceConstant * PriceConstant
	// MaxOrderTTL is the longest allowed distance between a match timestamp and an
	// order expiration, in milliseconds.
	MaxOrderTTL = uint64((30 * 24 * time.Hour) / time.Millisecond)
)

type Timestamp = uint64
type Scheme = byte
type Height = uint64

// Transaction is a common interface of signed ledger transactions.
type Transaction interface {
	GetID() ([]byte, error)
	MarshalBinary() ([]byte, error)
}

var jsonNullBytes = []byte(jsonNull)

func validInt64(v uint64) bool {
	return v <= math.MaxInt64
}

// B58Bytes represents bytes as a Base58 string in JSON.
type B58Bytes []byte

func (b B58Bytes) String() string {
	return base58.Encode(b)
}

func (b B58Bytes) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteRune('"')
	sb.WriteString(base58.Encode(b))
	sb.WriteRune('"')
	return []byte(sb.String()), nil
}

func (b *B58Bytes) UnmarshalJSON(value []byte) error {
	s := string(value)
	if s == jsonNull {
		*b = nil
		return nil
	}
	s, err := strconv.Unquote(s)
	if err != nil {
		return errors.Wrap(err, "failed to unmarshal B58Bytes from JSON")
	}
	if s == "" {
		*b = B58Bytes([]byte{})
		return nil
	}
	v, err := base58.Decode(s)
	if err != nil {
		return errors.Wrap(err, "failed to decode B58Bytes")
	}
	*b = B58Bytes(v)
	return nil
}

func (b B58Bytes) Bytes() []byte {
	return b
}

// OptionalAsset is an asset identifier that is absent for the native AQL asset.
type OptionalAsset struct {
	Present bool
	ID      crypto.Digest
}

// NewOptionalAssetFromString creates an OptionalAsset from its string representation.
func NewOptionalAssetFromString(s string) (*OptionalAsset, error) {
	switch strings.ToUpper(s) {
	case AqlAssetName, "":
		return &OptionalAsset{Present: false}, nil
	default:
		a, err := crypto.NewDigestFromBase58(s)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create OptionalAsset from Base58 string")
		}
		return &OptionalAsset{Present: true, ID: a}, nil
	}
}

func NewOptionalAssetFromDigest(d crypto.Digest) *OptionalAsset {
	return &OptionalAsset{Present: true, ID: d}
}

func (a OptionalAsset) String() string {
	if a.Present {
		return a.ID.String()
	}
	return AqlAssetName
}

func (a OptionalAsset) MarshalJSON() ([]byte, error) {
	if a.Present {
		return a.ID.MarshalJSON()
	}
	return jsonNullBytes, nil
}

func (a *OptionalAsset) UnmarshalJSON(value []byte) error {
	switch strings.ToUpper(string(value)) {
	case "NULL", quotedAqlAssetName:
		*a = OptionalAsset{Present: false}
	default:
		var d crypto.Digest
		if err := d.UnmarshalJSON(value); err != nil {
			return errors.Wrap(err, "failed to unmarshal OptionalAsset")
		}
		*a = OptionalAsset{Present: true, ID: d}
	}
	return nil
}

func (a OptionalAsset) binarySize() int {
	s := 1
	if a.Present {
		s += crypto.DigestSize
	}
	return s
}

// MarshalBinary writes the optional asset to its binary representation.
func (a OptionalAsset) MarshalBinary() ([]byte, error) {
	buf := make([]byte, a.binarySize())
	PutBool(buf, a.Present)
	copy(buf[1:], a.ID[:])
	return buf, nil
}

// UnmarshalBinary reads the OptionalAsset structure from its binary representation.
func (a *OptionalAsset) UnmarshalBinary(data []byte) error {
	var err error
	a.Present, err = Bool(data)
	if err != nil {
		return errors.Wrap(err, "failed to unmarshal OptionalAsset")
	}
	if a.Present {
		data = data[1:]
		if l := len(data); l < crypto.DigestSize {
			return errors.Errorf("not enough data for OptionalAsset value, expected %d, received %d", crypto.DigestSize, l)
		}
		copy(a.ID[:], data[:crypto.DigestSize])
	}
	return nil
}

// ToID returns the asset's digest bytes, or nil for the native asset.
func (a *OptionalAsset) ToID() []byte {
	if a.Present {
		return a.ID[:]
	}
	return nil
}

// OrderType an alias for byte that encodes the side of an Order (BUY|SELL).
type OrderType byte

const (
	Buy OrderType = iota
	Sell
)

const (
	buyOrderName  = "buy"
	sellOrderName = "sell"
)

func (o OrderType) String() string {
	if o == 0 {
		return buyOrderName
	}
	return sellOrderName
}

// MarshalJSON writes the value of OrderType to JSON representation.
func (o OrderType) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteRune('"')
	sb.WriteString(o.String())
	sb.WriteRune('"')
	return []byte(sb.String()), nil
}

// UnmarshalJSON reads an OrderType value from a JSON value.
func (o *OrderType) UnmarshalJSON(value []byte) error {
	s := string(value)
	if s == jsonNull {
		return nil
	}
	s, err := strconv.Unquote(s)
	if err != nil {
		return errors.Wrap(err, "failed to unmarshal OrderType from JSON")
	}
	switch strings.ToLower(s) {
	case buyOrderName:
		*o = Buy
	case sellOrderName:
		*o = Sell
	default:
		return errors.Errorf("incorrect OrderType '%s'", s)
	}
	return nil
}

// AssetPair is the pair of assets an Order trades between.
type AssetPair struct {
	AmountAsset OptionalAsset `json:"amountAsset"`
	PriceAsset  OptionalAsset `json:"priceAsset"`
}

// Order is a signed request to trade one asset for another at a limit price,
// countersigned for matching by a designated matcher.
type Order struct {
	ID         *crypto.Digest    `json:"id,omitempty"`
	Signature  *crypto.Signature `json:"signature,omitempty"`
	SenderPK   crypto.PublicKey  `json:"senderPublicKey"`
	MatcherPK  crypto.PublicKey  `json:"matcherPublicKey"`
	AssetPair  AssetPair         `json:"assetPair"`
	OrderType  OrderType         `json:"orderType"`
	Price      uint64            `json:"price"`
	Amount     uint64            `json:"amount"`
	Timestamp  uint64            `json:"timestamp"`
	Expiration uint64            `json:"expiration"`
	MatcherFee uint64            `json:"matcherFee"`
}

// NewUnsignedOrder creates a new order with empty ID and Signature fields.
func NewUnsignedOrder(senderPK, matcherPK crypto.PublicKey, amountAsset, priceAsset OptionalAsset, orderType OrderType, price, amount, timestamp, expiration, matcherFee uint64) *Order {
	return &Order{
		SenderPK:  senderPK,
		MatcherPK: matcherPK,
		AssetPair: AssetPair{
			AmountAsset: amountAsset,
			PriceAsset:  priceAsset},
		OrderType:  orderType,
		Price:      price,
		Amount:     amount,
		Timestamp:  timestamp,
		Expiration: expiration,
		MatcherFee: matcherFee,
	}
}

// Valid checks the order's own structural invariants.
func (o *Order) Valid() (bool, error) {
	if o.AssetPair.AmountAsset == o.AssetPair.PriceAsset {
		return false, errors.New("invalid asset pair")
	}
	if o.Price <= 0 {
		return false, errors.New("price should be positive")
	}
	if !validInt64(o.Price) {
		return false, errors.New("price is too big")
	}
	if o.Amount <= 0 {
		return false, errors.New("amount should be positive")
	}
	if !validInt64(o.Amount) {
		return false, errors.New("amount is too big")
	}
	if o.Amount > MaxOrderAmount {
		return false, errors.New("amount is larger than maximum allowed")
	}
	if o.MatcherFee <= 0 {
		return false, errors.New("matcher's fee should be positive")
	}
	if !validInt64(o.MatcherFee) {
		return false, errors.New("matcher's fee is too big")
	}
	if o.MatcherFee > MaxOrderAmount {
		return false, errors.New("matcher's fee is larger than maximum allowed")
	}
	s, err := o.SpendAmount(o.Amount, o.Price)
	if err != nil {
		return false, err
	}
	if s <= 0 {
		return false, errors.New("spend amount should be positive")
	}
	if !o.SpendAsset().Present && !validInt64(s+o.MatcherFee) {
		return false, errors.New("sum of spend asset amount and matcher fee overflows int64")
	}
	r, err := o.ReceiveAmount(o.Amount, o.Price)
	if err != nil {
		return false, err
	}
	if r <= 0 {
		return false, errors.New("receive amount should be positive")
	}
	if o.Timestamp <= 0 {
		return false, errors.New("timestamp should be positive")
	}
	if o.Expiration <= 0 {
		return false, errors.New("expiration should be positive")
	}
	return true, nil
}

// ValidAt checks the order's structural invariants and that it is alive at the
// given timestamp: not yet expired and expiring within MaxOrderTTL.
func (o *Order) ValidAt(timestamp uint64) (bool, error) {
	if ok, err := o.Valid(); !ok {
		return false, err
	}
	if o.Expiration < timestamp {
		return false, errors.New("order is expired")
	}
	if o.Expiration-timestamp > MaxOrderTTL {
		return false, errors.New("order expiration should be earlier than 30 days")
	}
	return true, nil
}

var bigPriceConstant = big.NewInt(PriceConstant)

// otherAmount converts an amount-asset quantity into price-asset units:
// floor(amount * PriceConstant / price) on a widened intermediate.
func otherAmount(amount, price uint64, name string) (uint64, error) {
	if price == 0 {
		return 0, errors.Errorf("%s amount is not defined for zero price", name)
	}
	a := big.NewInt(0).SetUint64(amount)
	r := big.NewInt(0).Mul(a, bigPriceConstant)
	r.Quo(r, big.NewInt(0).SetUint64(price))
	if !r.IsUint64() {
		return 0, errors.Errorf("%s amount is too large", name)
	}
	return r.Uint64(), nil
}

// SpendAmount returns the amount of spend asset a fill of the given size takes
// from the order's sender.
func (o *Order) SpendAmount(matchAmount, matchPrice uint64) (uint64, error) {
	if o.OrderType == Sell {
		return matchAmount, nil
	}
	return otherAmount(matchAmount, matchPrice, "spend")
}

// ReceiveAmount returns the amount of receive asset a fill of the given size
// gives to the order's sender.
func (o *Order) ReceiveAmount(matchAmount, matchPrice uint64) (uint64, error) {
	if o.OrderType == Buy {
		return matchAmount, nil
	}
	return otherAmount(matchAmount, matchPrice, "receive")
}

func (o *Order) SpendAsset() OptionalAsset {
	if o.OrderType == Buy {
		return o.AssetPair.PriceAsset
	}
	return o.AssetPair.AmountAsset
}

func (o *Order) ReceiveAsset() OptionalAsset {
	if o.OrderType == Buy {
		return o.AssetPair.AmountAsset
	}
	return o.AssetPair.PriceAsset
}

func (o *Order) bodyLen() int {
	l := orderLen
	if o.AssetPair.AmountAsset.Present {
		l += crypto.DigestSize
	}
	if o.AssetPair.PriceAsset.Present {
		l += crypto.DigestSize
	}
	return l
}

func (o *Order) bodyMarshalBinary() ([]byte, error) {
	var p int
	buf := make([]byte, o.bodyLen())
	copy(buf[0:], o.SenderPK[:])
	p += crypto.PublicKeySize
	copy(buf[p:], o.MatcherPK[:])
	p += crypto.PublicKeySize
	aa, err := o.AssetPair.AmountAsset.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal Order to bytes")
	}
	copy(buf[p:], aa)
	p += len(aa)
	pa, err := o.AssetPair.PriceAsset.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal Order to bytes")
	}
	copy(buf[p:], pa)
	p += len(pa)
	buf[p] = byte(o.OrderType)
	p++
	binary.BigEndian.PutUint64(buf[p:], o.Price)
	p += 8
	binary.BigEndian.PutUint64(buf[p:], o.Amount)
	p += 8
	binary.BigEndian.PutUint64(buf[p:], o.Timestamp)
	p += 8
	binary.BigEndian.PutUint64(buf[p:], o.Expiration)
	p += 8
	binary.BigEndian.PutUint64(buf[p:], o.MatcherFee)
	return buf, nil
}

func (o *Order) bodyUnmarshalBinary(data []byte) error {
	if l := len(data); l < orderLen {
		return errors.Errorf("not enough data for Order, expected not less then %d, received %d", orderLen, l)
	}
	copy(o.SenderPK[:], data[:crypto.PublicKeySize])
	data = data[crypto.PublicKeySize:]
	copy(o.MatcherPK[:], data[:crypto.PublicKeySize])
	data = data[crypto.PublicKeySize:]
	if err := o.AssetPair.AmountAsset.UnmarshalBinary(data); err != nil {
		return errors.Wrap(err, "failed to unmarshal Order from bytes")
	}
	data = data[o.AssetPair.AmountAsset.binarySize():]
	if err := o.AssetPair.PriceAsset.UnmarshalBinary(data); err != nil {
		return errors.Wrap(err, "failed to unmarshal Order from bytes")
	}
	data = data[o.AssetPair.PriceAsset.binarySize():]
	if l := len(data); l < 1+8+8+8+8+8 {
		return errors.Errorf("not enough data for Order, %d bytes left", l)
	}
	o.OrderType = OrderType(data[0])
	if o.OrderType > 1 {
		return errors.Errorf("incorrect order type %d", o.OrderType)
	}
	data = data[1:]
	o.Price = binary.BigEndian.Uint64(data)
	data = data[8:]
	o.Amount = binary.BigEndian.Uint64(data)
	data = data[8:]
	o.Timestamp = binary.BigEndian.Uint64(data)
	data = data[8:]
	o.Expiration = binary.BigEndian.Uint64(data)
	data = data[8:]
	o.MatcherFee = binary.BigEndian.Uint64(data)
	return nil
}

// Sign adds an ID and a signature to the order.
func (o *Order) Sign(secretKey crypto.SecretKey) error {
	b, err := o.bodyMarshalBinary()
	if err != nil {
		return errors.Wrap(err, "failed to sign Order")
	}
	s := crypto.Sign(secretKey, b)
	o.Signature = &s
	d, err := crypto.FastHash(b)
	if err != nil {
		return errors.Wrap(err, "failed to sign Order")
	}
	o.ID = &d
	return nil
}

// Verify checks that the order's signature is valid for the given public key.
func (o *Order) Verify(publicKey crypto.PublicKey) (bool, error) {
	if o.Signature == nil {
		return false, errors.New("empty signature")
	}
	b, err := o.bodyMarshalBinary()
	if err != nil {
		return false, errors.Wrap(err, "failed to verify signature of Order")
	}
	return crypto.Verify(publicKey, *o.Signature, b), nil
}

func (o *Order) BinarySize() int {
	return o.bodyLen() + crypto.SignatureSize
}

// MarshalBinary writes the order to its bytes representation.
func (o *Order) MarshalBinary() ([]byte, error) {
	b, err := o.bodyMarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal Order to bytes")
	}
	if o.Signature == nil {
		return nil, errors.New("failed to marshal Order to bytes: no signature")
	}
	buf := make([]byte, len(b)+crypto.SignatureSize)
	copy(buf, b)
	copy(buf[len(b):], o.Signature[:])
	return buf, nil
}

// UnmarshalBinary reads an order from its binary representation.
func (o *Order) UnmarshalBinary(data []byte) error {
	if l := len(data); l < orderMinLen {
		return errors.Errorf("not enough data for Order, expected not less then %d, received %d", orderMinLen, l)
	}
	if err := o.bodyUnmarshalBinary(data); err != nil {
		return errors.Wrap(err, "failed to unmarshal Order")
	}
	bl := o.bodyLen()
	if l := len(data); l < bl+crypto.SignatureSize {
		return errors.Errorf("not enough data for Order signature, expected %d, received %d", bl+crypto.SignatureSize, l)
	}
	b := data[:bl]
	data = data[bl:]
	var s crypto.Signature
	copy(s[:], data[:crypto.SignatureSize])
	o.Signature = &s
	d, err := crypto.FastHash(b)
	if err != nil {
		return errors.Wrap(err, "failed to unmarshal Order from bytes")
	}
	o.ID = &d
	return nil
}
