package state

import (
	"math/big"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/pkg/errors"

	"github.com/aquilaplatform/goaquila/pkg/crypto"
	"github.com/aquilaplatform/goaquila/pkg/errs"
	"github.com/aquilaplatform/goaquila/pkg/proto"
	"github.com/aquilaplatform/goaquila/pkg/util/common"
)

// Portfolio is the per-address slice of a diff: deltas of the native balance,
// of the stake-relevant effective balance and of each touched asset.
type Portfolio struct {
	Balance          int64
	EffectiveBalance int64
	Assets           map[crypto.Digest]int64
}

// combine adds two portfolios pointwise with overflow checks. Assets missing
// from either side count as zero.
func (p Portfolio) combine(other Portfolio) (Portfolio, error) {
	r := Portfolio{}
	var err error
	if r.Balance, err = common.AddInt64(p.Balance, other.Balance); err != nil {
		return Portfolio{}, errors.Wrap(err, "failed to combine balances")
	}
	if r.EffectiveBalance, err = common.AddInt64(p.EffectiveBalance, other.EffectiveBalance); err != nil {
		return Portfolio{}, errors.Wrap(err, "failed to combine effective balances")
	}
	if len(p.Assets)+len(other.Assets) > 0 {
		r.Assets = make(map[crypto.Digest]int64, len(p.Assets)+len(other.Assets))
		for a, v := range p.Assets {
			r.Assets[a] = v
		}
		for a, v := range other.Assets {
			if r.Assets[a], err = common.AddInt64(r.Assets[a], v); err != nil {
				return Portfolio{}, errors.Wrap(err, "failed to combine asset balances")
			}
		}
	}
	return r, nil
}

func (p Portfolio) copy() Portfolio {
	r := Portfolio{Balance: p.Balance, EffectiveBalance: p.EffectiveBalance}
	if p.Assets != nil {
		r.Assets = make(map[crypto.Digest]int64, len(p.Assets))
		for a, v := range p.Assets {
			r.Assets[a] = v
		}
	}
	return r
}

// AssetInfo describes an asset issued within a diff.
type AssetInfo struct {
	Quantity   *big.Int
	Reissuable bool
}

func (a AssetInfo) copy() AssetInfo {
	r := AssetInfo{Reissuable: a.Reissuable}
	if a.Quantity != nil {
		r.Quantity = big.NewInt(0).Set(a.Quantity)
	}
	return r
}

// TransactionRecord pins a transaction to its position within a block.
type TransactionRecord struct {
	Index int
	Tx    proto.Transaction
}

// Diff is the cumulative ledger effect of a set of transactions: the
// transactions themselves keyed by id in insertion order, the portfolio delta
// of every touched address and the assets issued along the way.
type Diff struct {
	Transactions *orderedmap.OrderedMap[crypto.Digest, TransactionRecord]
	Portfolios   map[proto.Address]Portfolio
	IssuedAssets map[crypto.Digest]AssetInfo
}

func NewDiff() Diff {
	return Diff{
		Transactions: orderedmap.NewOrderedMap[crypto.Digest, TransactionRecord](),
		Portfolios:   make(map[proto.Address]Portfolio),
		IssuedAssets: make(map[crypto.Digest]AssetInfo),
	}
}

// NewDiffFromBalanceChanges builds the single-transaction diff of a settled
// transaction from its balance changes.
func NewDiffFromBalanceChanges(tx proto.Transaction, index int, changes []BalanceChange) (Diff, error) {
	idBytes, err := tx.GetID()
	if err != nil {
		return Diff{}, errors.Wrap(err, "invalid transaction id")
	}
	id, err := crypto.NewDigestFromBytes(idBytes)
	if err != nil {
		return Diff{}, errors.Wrap(err, "invalid transaction id")
	}
	d := NewDiff()
	d.Transactions.Set(id, TransactionRecord{Index: index, Tx: tx})
	for _, ch := range changes {
		if err := d.applyChange(ch); err != nil {
			return Diff{}, err
		}
	}
	return d, nil
}

func (d *Diff) applyChange(ch BalanceChange) error {
	p := d.Portfolios[ch.Address]
	var err error
	if ch.Asset.Present {
		if p.Assets == nil {
			p.Assets = make(map[crypto.Digest]int64)
		}
		if p.Assets[ch.Asset.ID], err = common.AddInt64(p.Assets[ch.Asset.ID], ch.Amount); err != nil {
			return errors.Wrap(err, "failed to apply balance change")
		}
	} else {
		if p.Balance, err = common.AddInt64(p.Balance, ch.Amount); err != nil {
			return errors.Wrap(err, "failed to apply balance change")
		}
		if p.EffectiveBalance, err = common.AddInt64(p.EffectiveBalance, ch.Amount); err != nil {
			return errors.Wrap(err, "failed to apply balance change")
		}
	}
	d.Portfolios[ch.Address] = p
	return nil
}

// Merge folds other into d: transactions are united, portfolios are combined
// pointwise and issued asset infos from other replace earlier ones. A
// transaction id present on both sides is a MergeConflict and leaves d
// unmodified. Merging in either order produces the same balances.
func (d *Diff) Merge(other *Diff) error {
	for el := other.Transactions.Front(); el != nil; el = el.Next() {
		if _, ok := d.Transactions.Get(el.Key); ok {
			return errs.NewMergeConflict("transaction '" + el.Key.String() + "' is already in the diff")
		}
	}
	combined := make(map[proto.Address]Portfolio, len(other.Portfolios))
	for addr, p := range other.Portfolios {
		c, err := d.Portfolios[addr].combine(p)
		if err != nil {
			return errors.Wrap(err, "failed to merge diffs")
		}
		combined[addr] = c
	}
	for el := other.Transactions.Front(); el != nil; el = el.Next() {
		d.Transactions.Set(el.Key, el.Value)
	}
	for addr, p := range combined {
		d.Portfolios[addr] = p
	}
	for asset, info := range other.IssuedAssets {
		d.IssuedAssets[asset] = info.copy()
	}
	return nil
}

// BlockDiff is the effect of a whole block: its transaction diff plus the
// height advance it causes.
type BlockDiff struct {
	Diff
	HeightDiff int
}

func NewBlockDiff() BlockDiff {
	return BlockDiff{Diff: NewDiff(), HeightDiff: 0}
}

// Merge folds other into d, adding up the height advances.
func (d *BlockDiff) Merge(other *BlockDiff) error {
	if err := d.Diff.Merge(&other.Diff); err != nil {
		return err
	}
	d.HeightDiff += other.HeightDiff
	return nil
}
