package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aquilaplatform/goaquila/pkg/errs"
	"github.com/aquilaplatform/goaquila/pkg/proto"
)

func TestMatchPoolAccept(t *testing.T) {
	f := newExchangeFixture(t)
	pool := NewMatchPool(zaptest.NewLogger(t))

	tx := f.defaultMatch(t)
	require.NoError(t, pool.Accept(tx))
	assert.Equal(t, 1, pool.Len())

	got := pool.Matches(*tx.BuyOrder.ID)
	require.Len(t, got, 1)
	assert.Equal(t, *tx.ID, *got[0].ID)
	got = pool.Matches(*tx.SellOrder.ID)
	require.Len(t, got, 1)
	got = pool.Matches(*tx.BuyOrder.ID, *tx.SellOrder.ID)
	require.Len(t, got, 1)

	// The same full fill can not be settled twice.
	again := f.match(t, tx.BuyOrder, tx.SellOrder, tx.Price, tx.Amount, tx.BuyMatcherFee, tx.SellMatcherFee, tx.Fee, tx.Timestamp+1)
	err := pool.Accept(again)
	require.Error(t, err)
	assert.ErrorIs(t, err, &errs.TxValidationError{})
	assert.Equal(t, 1, pool.Len())
}

func TestMatchPoolRejectsInvalid(t *testing.T) {
	f := newExchangeFixture(t)
	pool := NewMatchPool(nil)
	tx := f.defaultMatch(t)
	tx.Amount++
	assert.Error(t, pool.Accept(tx))
	assert.Equal(t, 0, pool.Len())

	unsigned := f.defaultMatch(t)
	unsigned.ID = nil
	assert.Error(t, pool.Accept(unsigned))
}

func TestMatchPoolPartialFills(t *testing.T) {
	f := newExchangeFixture(t)
	pool := NewMatchPool(zaptest.NewLogger(t))
	buy := f.order(t, proto.Buy, 100, 30, 30)

	for i := 0; i < 3; i++ {
		sell := f.orderAt(t, proto.Sell, 90, 10, 10, testTimestamp+uint64(i))
		tx := f.match(t, buy, sell, 95, 10, 10, 10, 5, testTimestamp+uint64(i)+1)
		require.NoError(t, pool.Accept(tx), i)
	}
	assert.Equal(t, 3, pool.Len())

	// The buy order is fully filled now.
	sell := f.orderAt(t, proto.Sell, 90, 10, 10, testTimestamp+5)
	tx := f.match(t, buy, sell, 95, 10, 10, 10, 5, testTimestamp+10)
	err := pool.Accept(tx)
	require.Error(t, err)
	assert.Equal(t, "amount of a match exceeds remaining amount of the buy order", err.Error())
}

func TestMatchPoolConcurrentAccept(t *testing.T) {
	f := newExchangeFixture(t)
	pool := NewMatchPool(zaptest.NewLogger(t))
	buy := f.order(t, proto.Buy, 100, 30, 30)

	const candidates = 10
	txs := make([]*proto.ExchangeMatch, candidates)
	for i := range txs {
		sell := f.orderAt(t, proto.Sell, 90, 10, 10, testTimestamp+uint64(i))
		txs[i] = f.match(t, buy, sell, 95, 10, 10, 10, 5, testTimestamp+uint64(i)+1)
	}

	var wg sync.WaitGroup
	for _, tx := range txs {
		wg.Add(1)
		go func(tx *proto.ExchangeMatch) {
			defer wg.Done()
			_ = pool.Accept(tx)
		}(tx)
	}
	wg.Wait()

	// Whatever the interleaving, exactly three fills of ten fit into thirty.
	assert.Equal(t, 3, pool.Len())
	var total uint64
	for _, m := range pool.Matches(*buy.ID) {
		total += m.Amount
	}
	assert.Equal(t, buy.Amount, total)
}
