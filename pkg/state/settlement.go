package state

import (
	"math/big"

	"github.com/ccoveille/go-safecast"
	"github.com/pkg/errors"

	"github.com/aquilaplatform/goaquila/pkg/proto"
	"github.com/aquilaplatform/goaquila/pkg/util/common"
)

// BalanceChange is a single signed balance delta produced by settling a match.
// An absent Asset means the native token.
type BalanceChange struct {
	Address proto.Address
	Asset   proto.OptionalAsset
	Amount  int64
}

var bigPriceConstant = big.NewInt(proto.PriceConstant)

// priceAssetAmount converts an executed amount at the given price into price
// asset units: floor(amount * PriceConstant / price). The product is computed on
// a widened intermediate and the result must fit an int64.
func priceAssetAmount(amount, price uint64) (int64, error) {
	if price == 0 {
		return 0, errors.New("price asset amount is not defined for zero price")
	}
	v := big.NewInt(0).Mul(big.NewInt(0).SetUint64(amount), bigPriceConstant)
	v.Quo(v, big.NewInt(0).SetUint64(price))
	if !v.IsInt64() {
		return 0, errors.New("price asset amount overflows int64")
	}
	return v.Int64(), nil
}

// SettleExchange translates a validated match into the seven balance changes it
// causes: the asset legs of both parties, their matcher fee payments and the
// matcher's net fee income. The transaction itself is not modified.
//
// The changes conserve value per asset, except the native token which nets to
// minus the transaction fee leaving the system.
func SettleExchange(scheme proto.Scheme, tx *proto.ExchangeMatch) ([]BalanceChange, error) {
	sellerAddr, err := proto.NewAddressFromPublicKey(scheme, tx.SellOrder.SenderPK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to settle ExchangeMatch transaction")
	}
	buyerAddr, err := proto.NewAddressFromPublicKey(scheme, tx.BuyOrder.SenderPK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to settle ExchangeMatch transaction")
	}
	matcherAddr, err := proto.NewAddressFromPublicKey(scheme, tx.BuyOrder.MatcherPK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to settle ExchangeMatch transaction")
	}
	priceAmount, err := priceAssetAmount(tx.Amount, tx.Price)
	if err != nil {
		return nil, err
	}
	amount, err := safecast.ToInt64(tx.Amount)
	if err != nil {
		return nil, errors.Wrap(err, "invalid amount")
	}
	buyFee, err := safecast.ToInt64(tx.BuyMatcherFee)
	if err != nil {
		return nil, errors.Wrap(err, "invalid buy matcher fee")
	}
	sellFee, err := safecast.ToInt64(tx.SellMatcherFee)
	if err != nil {
		return nil, errors.Wrap(err, "invalid sell matcher fee")
	}
	fee, err := safecast.ToInt64(tx.Fee)
	if err != nil {
		return nil, errors.Wrap(err, "invalid fee")
	}
	feeSum, err := common.AddInt64(buyFee, sellFee)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sum matcher fees")
	}
	pair := tx.SellOrder.AssetPair
	native := proto.OptionalAsset{}
	return []BalanceChange{
		{Address: sellerAddr, Asset: pair.PriceAsset, Amount: priceAmount},
		{Address: sellerAddr, Asset: pair.AmountAsset, Amount: -amount},
		{Address: sellerAddr, Asset: native, Amount: -sellFee},
		{Address: buyerAddr, Asset: pair.PriceAsset, Amount: -priceAmount},
		{Address: buyerAddr, Asset: pair.AmountAsset, Amount: amount},
		{Address: buyerAddr, Asset: native, Amount: -buyFee},
		{Address: matcherAddr, Asset: native, Amount: feeSum - fee},
	}, nil
}
