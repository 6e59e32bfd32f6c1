package session

import (
	"sort"
	"sync"

	"github.com/cbodonnell/apclient/pkg/queue"
)

// Accumulator turns a one-shot item source, where every grant is delivered
// exactly once, into the cumulative view reconciliation expects. Counts start
// from persisted quantities so previously delivered grants are not lost.
type Accumulator struct {
	lock   sync.Mutex
	source queue.Queue
	counts map[int64]int
	items  map[int64]NetworkItem
}

func NewAccumulator(source queue.Queue) *Accumulator {
	return &Accumulator{
		source: source,
		counts: make(map[int64]int),
		items:  make(map[int64]NetworkItem),
	}
}

// Seed raises the running count of an item to at least quantity.
func (a *Accumulator) Seed(item NetworkItem, quantity int) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if quantity > a.counts[item.ItemID] {
		a.counts[item.ItemID] = quantity
	}
	if _, ok := a.items[item.ItemID]; !ok {
		a.items[item.ItemID] = item
	}
}

// ReceivedItems drains the source and returns the cumulative view.
func (a *Accumulator) ReceivedItems() []NetworkItem {
	a.lock.Lock()
	defer a.lock.Unlock()

	for {
		next, err := a.source.Dequeue()
		if err != nil {
			break
		}
		item, ok := next.(NetworkItem)
		if !ok {
			continue
		}
		a.counts[item.ItemID]++
		a.items[item.ItemID] = item
	}

	ids := make([]int64, 0, len(a.counts))
	for id := range a.counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var view []NetworkItem
	for _, id := range ids {
		for i := 0; i < a.counts[id]; i++ {
			view = append(view, a.items[id])
		}
	}
	return view
}
