package match

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func limitOrder(id string, side Side, price, qty uint64) *Order {
	return &Order{
		ID:        id,
		Side:      side,
		Type:      Limit,
		Price:     price,
		Original:  qty,
		Remaining: qty,
	}
}

func TestBidQueueOrdering(t *testing.T) {
	q := newBidQueue()

	q.insertOrder(limitOrder("b1", Buy, 90, 1), false)
	q.insertOrder(limitOrder("b2", Buy, 110, 1), false)
	q.insertOrder(limitOrder("b3", Buy, 100, 1), false)

	best, ok := q.bestPrice()
	assert.True(t, ok)
	assert.Equal(t, uint64(110), best)
	assert.Equal(t, "b2", q.peekHead().ID)

	levels := q.depth(0)
	assert.Len(t, levels, 3)
	assert.Equal(t, uint64(110), levels[0].Price)
	assert.Equal(t, uint64(100), levels[1].Price)
	assert.Equal(t, uint64(90), levels[2].Price)
}

func TestAskQueueOrdering(t *testing.T) {
	q := newAskQueue()

	q.insertOrder(limitOrder("a1", Sell, 110, 1), false)
	q.insertOrder(limitOrder("a2", Sell, 90, 1), false)
	q.insertOrder(limitOrder("a3", Sell, 100, 1), false)

	best, ok := q.bestPrice()
	assert.True(t, ok)
	assert.Equal(t, uint64(90), best)
	assert.Equal(t, "a2", q.peekHead().ID)
}

func TestQueueFIFOWithinLevel(t *testing.T) {
	q := newAskQueue()

	q.insertOrder(limitOrder("first", Sell, 100, 1), false)
	q.insertOrder(limitOrder("second", Sell, 100, 1), false)
	q.insertOrder(limitOrder("third", Sell, 100, 1), false)

	assert.Equal(t, "first", q.peekHead().ID)

	q.fillHead(1)
	assert.Equal(t, "second", q.peekHead().ID)

	q.fillHead(1)
	assert.Equal(t, "third", q.peekHead().ID)
}

func TestQueueInsertFrontKeepsPriority(t *testing.T) {
	q := newAskQueue()

	q.insertOrder(limitOrder("second", Sell, 100, 1), false)
	q.insertOrder(limitOrder("first", Sell, 100, 1), true)

	assert.Equal(t, "first", q.peekHead().ID)
}

func TestQueueRemoveOrder(t *testing.T) {
	q := newBidQueue()

	q.insertOrder(limitOrder("b1", Buy, 100, 2), false)
	q.insertOrder(limitOrder("b2", Buy, 100, 3), false)
	q.insertOrder(limitOrder("b3", Buy, 90, 1), false)

	assert.True(t, q.removeOrder("b1"))
	assert.False(t, q.removeOrder("b1"))
	assert.False(t, q.removeOrder("missing"))

	assert.Equal(t, int64(2), q.orderCount())
	assert.Equal(t, "b2", q.peekHead().ID)

	// removing the last order at a price drops the level
	assert.True(t, q.removeOrder("b3"))
	assert.Equal(t, int64(1), q.depthCount())
}

func TestQueueFillHeadPartial(t *testing.T) {
	q := newAskQueue()

	q.insertOrder(limitOrder("a1", Sell, 100, 10), false)
	q.fillHead(4)

	head := q.peekHead()
	assert.Equal(t, "a1", head.ID)
	assert.Equal(t, uint64(6), head.Remaining)
	assert.Equal(t, uint64(4), head.Filled())

	levels := q.depth(1)
	assert.Equal(t, uint64(6), levels[0].Quantity)
}

func TestQueueReduceOrder(t *testing.T) {
	q := newBidQueue()

	q.insertOrder(limitOrder("b1", Buy, 100, 10), false)
	q.insertOrder(limitOrder("b2", Buy, 100, 5), false)

	q.reduceOrder("b1", 3)

	assert.Equal(t, uint64(3), q.order("b1").Remaining)
	assert.Equal(t, "b1", q.peekHead().ID)

	levels := q.depth(1)
	assert.Equal(t, uint64(8), levels[0].Quantity)
}

func TestQueueAvailableWithin(t *testing.T) {
	q := newAskQueue()

	q.insertOrder(limitOrder("a1", Sell, 100, 3), false)
	q.insertOrder(limitOrder("a2", Sell, 105, 3), false)
	q.insertOrder(limitOrder("a3", Sell, 110, 3), false)

	assert.True(t, q.availableWithin(105, 6))
	assert.False(t, q.availableWithin(105, 7))
	assert.True(t, q.availableWithin(110, 9))
	assert.False(t, q.availableWithin(99, 1))
}

func TestQueueDepthLimit(t *testing.T) {
	q := newAskQueue()
	for i := uint64(1); i <= 10; i++ {
		q.insertOrder(limitOrder("a"+strconv.FormatUint(i, 10), Sell, 100+i, 1), false)
	}

	assert.Len(t, q.depth(3), 3)
	assert.Len(t, q.depth(0), 10)
}
