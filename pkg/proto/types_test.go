package proto

import (
	"encoding/json"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquilaplatform/goaquila/pkg/crypto"
)

func TestOptionalAssetFromString(t *testing.T) {
	aid := crypto.MustFastHash([]byte("an asset"))
	tests := []struct {
		s       string
		present bool
	}{
		{"", false},
		{"AQL", false},
		{"aql", false},
		{aid.String(), true},
	}
	for _, tc := range tests {
		a, err := NewOptionalAssetFromString(tc.s)
		require.NoError(t, err, tc.s)
		assert.Equal(t, tc.present, a.Present, tc.s)
		if tc.present {
			assert.Equal(t, aid, a.ID)
			assert.Equal(t, aid.Bytes(), a.ToID())
		} else {
			assert.Equal(t, AqlAssetName, a.String())
			assert.Nil(t, a.ToID())
		}
	}
	_, err := NewOptionalAssetFromString("not-a-base58-!!!")
	assert.Error(t, err)
}

func TestOptionalAssetJSON(t *testing.T) {
	aid := crypto.MustFastHash([]byte("json asset"))
	tests := []struct {
		asset OptionalAsset
		js    string
	}{
		{OptionalAsset{}, "null"},
		{*NewOptionalAssetFromDigest(aid), "\"" + aid.String() + "\""},
	}
	for _, tc := range tests {
		b, err := json.Marshal(tc.asset)
		require.NoError(t, err)
		assert.Equal(t, tc.js, string(b))
		var a OptionalAsset
		require.NoError(t, json.Unmarshal([]byte(tc.js), &a))
		assert.Equal(t, tc.asset, a)
	}
	var a OptionalAsset
	require.NoError(t, json.Unmarshal([]byte("\"AQL\""), &a))
	assert.False(t, a.Present)
}

func TestOptionalAssetBinaryRoundTrip(t *testing.T) {
	aid := crypto.MustFastHash([]byte("binary asset"))
	for _, asset := range []OptionalAsset{{}, {Present: true, ID: aid}} {
		b, err := asset.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, asset.binarySize(), len(b))
		var a OptionalAsset
		require.NoError(t, a.UnmarshalBinary(b))
		assert.Equal(t, asset, a)
	}
}

func TestOrderTypeJSON(t *testing.T) {
	b, err := json.Marshal(Buy)
	require.NoError(t, err)
	assert.Equal(t, "\"buy\"", string(b))
	b, err = json.Marshal(Sell)
	require.NoError(t, err)
	assert.Equal(t, "\"sell\"", string(b))
	var ot OrderType
	require.NoError(t, json.Unmarshal([]byte("\"sell\""), &ot))
	assert.Equal(t, Sell, ot)
	assert.Error(t, json.Unmarshal([]byte("\"short\""), &ot))
}

func testKeyPair(t *testing.T, seed string) (crypto.SecretKey, crypto.PublicKey) {
	sk, pk, err := crypto.GenerateKeyPair([]byte(seed))
	require.NoError(t, err)
	return sk, pk
}

func testOrder(t *testing.T, ot OrderType, price, amount, fee uint64) (*Order, crypto.SecretKey) {
	sk, pk := testKeyPair(t, "order sender seed")
	_, mpk := testKeyPair(t, "matcher seed")
	aa := *NewOptionalAssetFromDigest(crypto.MustFastHash([]byte("amount asset")))
	pa := OptionalAsset{}
	ts := uint64(1593600000000)
	return NewUnsignedOrder(pk, mpk, aa, pa, ot, price, amount, ts, ts+86400000, fee), sk
}

func TestOrderValid(t *testing.T) {
	valid, _ := testOrder(t, Buy, 100*PriceConstant, 10*PriceConstant, 300000)
	tests := []struct {
		modify func(o *Order)
		err    string
	}{
		{func(o *Order) {}, ""},
		{func(o *Order) { o.AssetPair.PriceAsset = o.AssetPair.AmountAsset }, "invalid asset pair"},
		{func(o *Order) { o.Price = 0 }, "price should be positive"},
		{func(o *Order) { o.Price = 1 << 63 }, "price is too big"},
		{func(o *Order) { o.Amount = 0 }, "amount should be positive"},
		{func(o *Order) { o.Amount = 1 << 63 }, "amount is too big"},
		{func(o *Order) { o.Amount = MaxOrderAmount + 1 }, "amount is larger than maximum allowed"},
		{func(o *Order) { o.MatcherFee = 0 }, "matcher's fee should be positive"},
		{func(o *Order) { o.MatcherFee = MaxOrderAmount + 1 }, "matcher's fee is larger than maximum allowed"},
		{func(o *Order) { o.Price = 2 * PriceConstant; o.Amount = 1 }, "spend amount should be positive"},
		{func(o *Order) { o.Timestamp = 0 }, "timestamp should be positive"},
		{func(o *Order) { o.Expiration = 0 }, "expiration should be positive"},
	}
	for _, tc := range tests {
		o := *valid
		tc.modify(&o)
		ok, err := o.Valid()
		if tc.err == "" {
			assert.True(t, ok)
			assert.NoError(t, err)
		} else {
			assert.False(t, ok)
			require.Error(t, err)
			assert.Equal(t, tc.err, err.Error())
		}
	}
}

func TestOrderValidAt(t *testing.T) {
	o, _ := testOrder(t, Sell, 100*PriceConstant, 10*PriceConstant, 300000)
	ok, err := o.ValidAt(o.Timestamp)
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, err = o.ValidAt(o.Expiration + 1)
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, "order is expired", err.Error())

	o.Expiration = o.Timestamp + MaxOrderTTL + 1
	ok, err = o.ValidAt(o.Timestamp)
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, "order expiration should be earlier than 30 days", err.Error())
}

func TestOrderAmounts(t *testing.T) {
	// 10*PC amount at price 100*PC converts to 10*PC*PC/(100*PC) price asset units.
	converted := uint64(PriceConstant / 10)
	buy, _ := testOrder(t, Buy, 100*PriceConstant, 10*PriceConstant, 300000)
	spend, err := buy.SpendAmount(buy.Amount, buy.Price)
	require.NoError(t, err)
	assert.Equal(t, converted, spend)
	receive, err := buy.ReceiveAmount(buy.Amount, buy.Price)
	require.NoError(t, err)
	assert.Equal(t, buy.Amount, receive)
	assert.Equal(t, buy.AssetPair.PriceAsset, buy.SpendAsset())
	assert.Equal(t, buy.AssetPair.AmountAsset, buy.ReceiveAsset())

	sell, _ := testOrder(t, Sell, 100*PriceConstant, 10*PriceConstant, 300000)
	spend, err = sell.SpendAmount(sell.Amount, sell.Price)
	require.NoError(t, err)
	assert.Equal(t, sell.Amount, spend)
	receive, err = sell.ReceiveAmount(sell.Amount, sell.Price)
	require.NoError(t, err)
	assert.Equal(t, converted, receive)
	assert.Equal(t, sell.AssetPair.AmountAsset, sell.SpendAsset())
	assert.Equal(t, sell.AssetPair.PriceAsset, sell.ReceiveAsset())
}

func TestOtherAmountFloor(t *testing.T) {
	// 10 * 100000000 / 95 truncates to 10526315.
	v, err := otherAmount(10, 95, "spend")
	require.NoError(t, err)
	assert.Equal(t, uint64(10526315), v)

	// 7 * 100000000 / 300000000 truncates to 2.
	v, err = otherAmount(7, 3*PriceConstant, "spend")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)

	_, err = otherAmount(1, 0, "spend")
	assert.Error(t, err)
}

func TestOrderSignVerify(t *testing.T) {
	o, sk := testOrder(t, Buy, 100*PriceConstant, 10*PriceConstant, 300000)
	require.NoError(t, o.Sign(sk))
	require.NotNil(t, o.ID)
	require.NotNil(t, o.Signature)
	ok, err := o.Verify(o.SenderPK)
	require.NoError(t, err)
	assert.True(t, ok)

	o.Amount++
	ok, err = o.Verify(o.SenderPK)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderBinaryRoundTrip(t *testing.T) {
	o, sk := testOrder(t, Sell, 42*PriceConstant, 7*PriceConstant, 300000)
	require.NoError(t, o.Sign(sk))
	b, err := o.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, o.BinarySize(), len(b))
	var o2 Order
	require.NoError(t, o2.UnmarshalBinary(b))
	assert.Nil(t, deep.Equal(o, &o2))

	_, err2 := o2.Verify(o.SenderPK)
	require.NoError(t, err2)
}

func TestOrderUnmarshalTruncated(t *testing.T) {
	o, sk := testOrder(t, Buy, 42*PriceConstant, 7*PriceConstant, 300000)
	require.NoError(t, o.Sign(sk))
	b, err := o.MarshalBinary()
	require.NoError(t, err)
	for _, l := range []int{0, 1, orderLen - 1, len(b) - 1} {
		var o2 Order
		assert.Error(t, o2.UnmarshalBinary(b[:l]), l)
	}
}

func TestOrderMarshalUnsigned(t *testing.T) {
	o, _ := testOrder(t, Buy, 42*PriceConstant, 7*PriceConstant, 300000)
	_, err := o.MarshalBinary()
	assert.Error(t, err)
}

func TestOrderJSONFieldNames(t *testing.T) {
	o, sk := testOrder(t, Buy, 100*PriceConstant, 10*PriceConstant, 300000)
	require.NoError(t, o.Sign(sk))
	js, err := json.Marshal(o)
	require.NoError(t, err)
	for _, f := range []string{"\"id\"", "\"signature\"", "\"senderPublicKey\"", "\"matcherPublicKey\"", "\"assetPair\"", "\"amountAsset\"", "\"priceAsset\"", "\"orderType\"", "\"price\"", "\"amount\"", "\"timestamp\"", "\"expiration\"", "\"matcherFee\""} {
		assert.Contains(t, string(js), f)
	}
	var o2 Order
	require.NoError(t, json.Unmarshal(js, &o2))
	assert.Nil(t, deep.Equal(o, &o2))
}
