package match

import (
	"github.com/huandu/skiplist"
)

// priceLevel is one price point on a book side: a FIFO of orders sharing the
// same price, linked intrusively through the orders themselves.
type priceLevel struct {
	total uint64 // sum of Remaining across the level
	head  *Order
	tail  *Order
	count int64
}

// sideQueue holds one side of a book. The ladder is a skiplist keyed by tick
// price (bids descending, asks ascending) so the best price is always at the
// front; levels and orders provide O(1) lookup by price and by order id.
type sideQueue struct {
	side        Side
	totalOrders int64
	depths      int64
	ladder      *skiplist.SkipList
	levels      map[uint64]*skiplist.Element
	orders      map[string]*Order
}

// newBidQueue creates a queue for buy orders, sorted by price descending
// (highest price first).
func newBidQueue() *sideQueue {
	return &sideQueue{
		side: Buy,
		ladder: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			p1, _ := lhs.(uint64)
			p2, _ := rhs.(uint64)

			if p1 < p2 {
				return 1
			} else if p1 > p2 {
				return -1
			}

			return 0
		})),
		levels: make(map[uint64]*skiplist.Element),
		orders: make(map[string]*Order),
	}
}

// newAskQueue creates a queue for sell orders, sorted by price ascending
// (lowest price first).
func newAskQueue() *sideQueue {
	return &sideQueue{
		side: Sell,
		ladder: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			p1, _ := lhs.(uint64)
			p2, _ := rhs.(uint64)

			if p1 > p2 {
				return 1
			} else if p1 < p2 {
				return -1
			}

			return 0
		})),
		levels: make(map[uint64]*skiplist.Element),
		orders: make(map[string]*Order),
	}
}

// order finds an order by its ID.
func (q *sideQueue) order(id string) *Order {
	return q.orders[id]
}

// insertOrder inserts an order into the queue, creating the price level on
// first use. front re-queues a partially filled order at the head of its
// level, preserving its time priority.
func (q *sideQueue) insertOrder(order *Order, front bool) {
	el, ok := q.levels[order.Price]
	if ok {
		level, _ := el.Value.(*priceLevel)
		if front {
			order.next = level.head
			order.prev = nil
			if level.head != nil {
				level.head.prev = order
			}
			level.head = order
			if level.tail == nil {
				level.tail = order
			}
		} else {
			order.prev = level.tail
			order.next = nil
			if level.tail != nil {
				level.tail.next = order
			}
			level.tail = order
			if level.head == nil {
				level.head = order
			}
		}

		level.total += order.Remaining
		level.count++
		q.orders[order.ID] = order
		q.totalOrders++
	} else {
		level := &priceLevel{
			head:  order,
			tail:  order,
			total: order.Remaining,
			count: 1,
		}
		order.next = nil
		order.prev = nil

		q.orders[order.ID] = order

		el := q.ladder.Set(order.Price, level)
		q.levels[order.Price] = el

		q.totalOrders++
		q.depths++
	}
}

// removeOrder removes an order by id, preserving the relative order of the
// remainder of its level. The level itself is removed when it empties.
// Returns false if the id is unknown.
func (q *sideQueue) removeOrder(id string) bool {
	order, ok := q.orders[id]
	if !ok {
		return false
	}

	el, ok := q.levels[order.Price]
	if !ok {
		return false
	}
	level, _ := el.Value.(*priceLevel)

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		level.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		level.tail = order.prev
	}

	// Clear pointers so removed orders never alias live list state.
	order.next = nil
	order.prev = nil

	level.total -= order.Remaining
	level.count--
	delete(q.orders, id)
	q.totalOrders--

	if level.count == 0 {
		q.ladder.RemoveElement(el)
		delete(q.levels, order.Price)
		q.depths--
	}

	return true
}

// reduceOrder shrinks an order's remaining quantity in place. This is the
// priority-preserving amend path: same price, smaller size.
func (q *sideQueue) reduceOrder(id string, newRemaining uint64) {
	order, ok := q.orders[id]
	if !ok || newRemaining > order.Remaining {
		return
	}

	if el, ok := q.levels[order.Price]; ok {
		level, _ := el.Value.(*priceLevel)
		level.total -= order.Remaining - newRemaining
		order.Remaining = newRemaining
	}
}

// fillHead executes qty against the order at the front of the queue,
// removing it when fully consumed. qty never exceeds the head's remaining.
func (q *sideQueue) fillHead(qty uint64) {
	order := q.peekHead()
	if order == nil {
		return
	}

	el := q.levels[order.Price]
	level, _ := el.Value.(*priceLevel)

	order.fill(qty)
	level.total -= qty

	if order.Remaining == 0 {
		level.head = order.next
		if level.head != nil {
			level.head.prev = nil
		} else {
			level.tail = nil
		}
		order.next = nil
		order.prev = nil

		level.count--
		delete(q.orders, order.ID)
		q.totalOrders--

		if level.count == 0 {
			q.ladder.RemoveElement(el)
			delete(q.levels, order.Price)
			q.depths--
		}
	}
}

// peekHead returns the earliest-sequence order at the best price without
// removing it.
func (q *sideQueue) peekHead() *Order {
	el := q.ladder.Front()
	if el == nil {
		return nil
	}

	level, _ := el.Value.(*priceLevel)
	return level.head
}

// bestPrice returns the best price on this side, or false when empty.
func (q *sideQueue) bestPrice() (uint64, bool) {
	el := q.ladder.Front()
	if el == nil {
		return 0, false
	}
	price, _ := el.Key().(uint64)
	return price, true
}

// availableWithin reports whether at least needed quantity rests at prices
// crossing the given limit. Used by fill-or-kill validation.
func (q *sideQueue) availableWithin(limit uint64, needed uint64) bool {
	var sum uint64

	el := q.ladder.Front()
	for el != nil {
		price, _ := el.Key().(uint64)
		if q.side == Sell && price > limit {
			break
		}
		if q.side == Buy && price < limit {
			break
		}

		level, _ := el.Value.(*priceLevel)
		sum += level.total
		if sum >= needed {
			return true
		}

		el = el.Next()
	}

	return false
}

// orderCount returns the total number of orders in the queue.
func (q *sideQueue) orderCount() int64 {
	return q.totalOrders
}

// depthCount returns the number of price levels in the queue.
func (q *sideQueue) depthCount() int64 {
	return q.depths
}

// depth returns up to limit aggregated levels from the best price outward.
// A limit of 0 returns every level.
func (q *sideQueue) depth(limit int) []PriceLevelInfo {
	result := make([]PriceLevelInfo, 0, limit)

	el := q.ladder.Front()
	for el != nil && (limit == 0 || len(result) < limit) {
		price, _ := el.Key().(uint64)
		level, _ := el.Value.(*priceLevel)

		result = append(result, PriceLevelInfo{
			Price:    price,
			Quantity: level.total,
			Orders:   level.count,
		})

		el = el.Next()
	}

	return result
}
