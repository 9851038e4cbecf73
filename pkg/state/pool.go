package state

import (
	"sync"

	"go.uber.org/zap"

	"github.com/aquilaplatform/goaquila/pkg/crypto"
	"github.com/aquilaplatform/goaquila/pkg/errs"
	"github.com/aquilaplatform/goaquila/pkg/proto"
)

// MatchPool accumulates accepted matches and guards the orders' cumulative fill
// bounds. Accept serializes validation against the already accepted history, so
// two matches racing for the remainder of one order can not both pass.
type MatchPool struct {
	mu       sync.Mutex
	byOrder  map[crypto.Digest][]*proto.ExchangeMatch
	accepted int
	log      *zap.Logger
}

func NewMatchPool(log *zap.Logger) *MatchPool {
	if log == nil {
		log = zap.NewNop()
	}
	return &MatchPool{
		byOrder: make(map[crypto.Digest][]*proto.ExchangeMatch),
		log:     log,
	}
}

// priorOf collects the accepted matches referencing either of the candidate's
// orders. Callers must hold mu.
func (p *MatchPool) priorOf(tx *proto.ExchangeMatch) []*proto.ExchangeMatch {
	var prior []*proto.ExchangeMatch
	seen := make(map[crypto.Digest]struct{})
	for _, id := range []*crypto.Digest{tx.BuyOrder.ID, tx.SellOrder.ID} {
		if id == nil {
			continue
		}
		for _, m := range p.byOrder[*id] {
			if _, ok := seen[*m.ID]; ok {
				continue
			}
			seen[*m.ID] = struct{}{}
			prior = append(prior, m)
		}
	}
	return prior
}

// Accept validates the match against the pool's accepted history and commits it
// on success. Validation and commit happen under one lock, so the history a
// match was validated against can not change before it is recorded.
func (p *MatchPool) Accept(tx *proto.ExchangeMatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if tx.ID == nil || tx.BuyOrder.ID == nil || tx.SellOrder.ID == nil {
		return errs.NewTxValidationError("match or one of its orders has no id")
	}
	if err := ValidateExchange(tx, p.priorOf(tx)); err != nil {
		p.log.Debug("match rejected", zap.Error(err))
		return err
	}
	p.byOrder[*tx.BuyOrder.ID] = append(p.byOrder[*tx.BuyOrder.ID], tx)
	p.byOrder[*tx.SellOrder.ID] = append(p.byOrder[*tx.SellOrder.ID], tx)
	p.accepted++
	p.log.Info("match accepted",
		zap.Stringer("tx", tx.ID),
		zap.Stringer("buyOrder", tx.BuyOrder.ID),
		zap.Stringer("sellOrder", tx.SellOrder.ID),
		zap.Uint64("amount", tx.Amount),
		zap.Uint64("price", tx.Price),
	)
	return nil
}

// Matches returns a snapshot of the accepted matches referencing any of the
// given orders. The returned slice is a copy; callers may use it for
// validation of further candidates without holding the pool locked.
func (p *MatchPool) Matches(orderIDs ...crypto.Digest) []*proto.ExchangeMatch {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*proto.ExchangeMatch
	seen := make(map[crypto.Digest]struct{})
	for _, id := range orderIDs {
		for _, m := range p.byOrder[id] {
			if _, ok := seen[*m.ID]; ok {
				continue
			}
			seen[*m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of accepted matches.
func (p *MatchPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accepted
}
