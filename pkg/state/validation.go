package state

import (
	"bytes"
	"math/big"

	"github.com/pkg/errors"

	"github.com/aquilaplatform/goaquila/pkg/errs"
	"github.com/aquilaplatform/goaquila/pkg/proto"
	"github.com/aquilaplatform/goaquila/pkg/util/common"
)

// orderFill accumulates the already settled volume of a single order across a
// set of matches: the sum of executed amounts and of the matcher-fee portions
// charged to that order's side.
type orderFill struct {
	amountFilled uint64
	feeFilled    uint64
}

func sameOrder(a, b *proto.Order) bool {
	if a.ID == nil || b.ID == nil {
		return false
	}
	return bytes.Equal(a.ID[:], b.ID[:])
}

// fillOfOrder replays prior matches referencing the given order and adds the
// candidate's own contribution.
func fillOfOrder(order *proto.Order, prior []*proto.ExchangeMatch, ownAmount, ownFee uint64) (orderFill, error) {
	fill := orderFill{amountFilled: ownAmount, feeFilled: ownFee}
	for _, m := range prior {
		var amount, fee uint64
		switch {
		case sameOrder(order, &m.BuyOrder):
			amount, fee = m.Amount, m.BuyMatcherFee
		case sameOrder(order, &m.SellOrder):
			amount, fee = m.Amount, m.SellMatcherFee
		default:
			continue
		}
		var err error
		if fill.amountFilled, err = common.AddUint64(fill.amountFilled, amount); err != nil {
			return orderFill{}, errors.Wrap(err, "failed to sum filled amounts")
		}
		if fill.feeFilled, err = common.AddUint64(fill.feeFilled, fee); err != nil {
			return orderFill{}, errors.Wrap(err, "failed to sum filled fees")
		}
	}
	return fill, nil
}

// checkOrderFill enforces the cumulative fill bound and the proportional fee
// bound for one side of the candidate match. The fee bound is evaluated as
// feeFilled * order.Amount <= order.MatcherFee * amountFilled on widened
// intermediates; both sides are products, so no rounding is involved.
func checkOrderFill(side string, order *proto.Order, fill orderFill) error {
	if fill.amountFilled > order.Amount {
		return errs.NewTxValidationError("amount of a match exceeds remaining amount of the " + side)
	}
	if fill.feeFilled <= 0 {
		return errs.NewTxValidationError("matcher fee of the " + side + " should be positive")
	}
	feeSide := big.NewInt(0).Mul(big.NewInt(0).SetUint64(fill.feeFilled), big.NewInt(0).SetUint64(order.Amount))
	amountSide := big.NewInt(0).Mul(big.NewInt(0).SetUint64(order.MatcherFee), big.NewInt(0).SetUint64(fill.amountFilled))
	if feeSide.Cmp(amountSide) > 0 {
		return errs.NewTxValidationError("matcher fee of the " + side + " exceeds the authorized proportion")
	}
	return nil
}

// ValidateExchange checks a candidate match against the orders it references and
// against the set of previously accepted matches of the same orders. It is pure:
// neither the candidate nor the prior snapshot is modified, and repeated calls
// with the same inputs give the same result.
func ValidateExchange(tx *proto.ExchangeMatch, prior []*proto.ExchangeMatch) error {
	buy, sell := &tx.BuyOrder, &tx.SellOrder
	// Scalar bounds.
	if tx.Fee <= 0 {
		return errs.NewTxValidationError("fee should be positive")
	}
	if tx.Amount <= 0 {
		return errs.NewTxValidationError("amount should be positive")
	}
	if tx.Price <= 0 {
		return errs.NewTxValidationError("price should be positive")
	}
	if tx.Price >= proto.MaxOrderAmount {
		return errs.NewTxValidationError("price is too big")
	}
	if tx.Amount >= proto.MaxOrderAmount {
		return errs.NewTxValidationError("amount is too big")
	}
	if tx.SellMatcherFee >= proto.MaxOrderAmount {
		return errs.NewTxValidationError("sell matcher fee is too big")
	}
	if tx.BuyMatcherFee >= proto.MaxOrderAmount {
		return errs.NewTxValidationError("buy matcher fee is too big")
	}
	if tx.Fee >= proto.MaxOrderAmount {
		return errs.NewTxValidationError("fee is too big")
	}
	// Side correctness.
	if buy.OrderType != proto.Buy {
		return errs.NewTxValidationError("incorrect order type of buy order")
	}
	if sell.OrderType != proto.Sell {
		return errs.NewTxValidationError("incorrect order type of sell order")
	}
	// Matcher and asset pair consistency.
	if sell.MatcherPK != buy.MatcherPK {
		return errs.NewTxValidationError("unmatched matcher's public keys")
	}
	if sell.AssetPair != buy.AssetPair {
		return errs.NewTxValidationError("different asset pairs")
	}
	// Each order's own validity at the match timestamp.
	if ok, err := buy.ValidAt(tx.Timestamp); !ok {
		return errs.NewOrderValidationError("buy order", err.Error())
	}
	if ok, err := sell.ValidAt(tx.Timestamp); !ok {
		return errs.NewOrderValidationError("sell order", err.Error())
	}
	// Price crossing: the buyer's limit is an upper bound, the seller's a lower one.
	if tx.Price > buy.Price || tx.Price < sell.Price {
		return errs.NewTxValidationError("invalid price")
	}
	// Cumulative fill and proportional fee bounds, replayed from match history.
	buyFill, err := fillOfOrder(buy, prior, tx.Amount, tx.BuyMatcherFee)
	if err != nil {
		return errs.NewTxValidationError(err.Error())
	}
	if err := checkOrderFill("buy order", buy, buyFill); err != nil {
		return err
	}
	sellFill, err := fillOfOrder(sell, prior, tx.Amount, tx.SellMatcherFee)
	if err != nil {
		return errs.NewTxValidationError(err.Error())
	}
	if err := checkOrderFill("sell order", sell, sellFill); err != nil {
		return err
	}
	// Matcher's take must stay below what both sides pay in.
	feeSum, err := common.AddUint64(tx.BuyMatcherFee, tx.SellMatcherFee)
	if err != nil {
		return errs.NewTxValidationError(err.Error())
	}
	if tx.Fee >= feeSum {
		return errs.NewTxValidationError("fee should be less than sum of matcher fees")
	}
	// Matcher's signature over the canonical body.
	ok, err := tx.Verify(buy.MatcherPK)
	if err != nil {
		return errs.NewSignatureInvalid(err.Error())
	}
	if !ok {
		return errs.NewSignatureInvalid("invalid signature of ExchangeMatch transaction")
	}
	return nil
}
