package domain

import (
	"fmt"
	"sort"
)

// OrderBook is an immutable, event-folded projection of one asset's book.
// Every Apply* method returns a new OrderBook; the receiver is never
// mutated, so callers must not assume a reference survives past the call
// that replaces it in the projection map.
type OrderBook struct {
	asset              MarketAsset
	bids               []PriceLevel // sorted strictly descending by price
	asks               []PriceLevel // sorted strictly ascending by price
	latestTrade        *TradeEvent
	tickSize           Price
	timestamp          Timestamp
	lastSequenceNumber uint64
	bookHash           string
}

// EmptyOrderBook creates a fresh OrderBook for asset: default tick 0.01,
// empty sides, no trade, sequence 0, timestamp 0, empty hash.
func EmptyOrderBook(asset MarketAsset) OrderBook {
	return OrderBook{
		asset:    asset,
		tickSize: DefaultTickSize(),
	}
}

// Asset returns the book's asset.
func (b OrderBook) Asset() MarketAsset { return b.asset }

// Bids returns the current descending-by-price bid levels.
func (b OrderBook) Bids() []PriceLevel { return b.bids }

// Asks returns the current ascending-by-price ask levels.
func (b OrderBook) Asks() []PriceLevel { return b.asks }

// LatestTrade returns the most recently applied trade, if any.
func (b OrderBook) LatestTrade() (TradeEvent, bool) {
	if b.latestTrade == nil {
		return TradeEvent{}, false
	}
	return *b.latestTrade, true
}

// TickSize returns the book's current minimum price increment.
func (b OrderBook) TickSize() Price { return b.tickSize }

// Timestamp returns the timestamp of the most recently applied event.
func (b OrderBook) Timestamp() Timestamp { return b.timestamp }

// LastSequenceNumber returns the sequence of the most recently applied event.
func (b OrderBook) LastSequenceNumber() uint64 { return b.lastSequenceNumber }

// BookHash returns the upstream-supplied digest from the last BookSnapshot
// applied (or empty if none has been applied).
func (b OrderBook) BookHash() string { return b.bookHash }

// BestBid returns the top of the bid side, failing if bids are empty.
func (b OrderBook) BestBid() (Price, error) {
	if len(b.bids) == 0 {
		return Price{}, fmt.Errorf("domain: order book has no bids: %w", ErrLookup)
	}
	return b.bids[0].Price, nil
}

// BestAsk returns the top of the ask side, failing if asks are empty.
func (b OrderBook) BestAsk() (Price, error) {
	if len(b.asks) == 0 {
		return Price{}, fmt.Errorf("domain: order book has no asks: %w", ErrLookup)
	}
	return b.asks[0].Price, nil
}

// SpreadOf returns the best-bid/best-ask pair, propagating an empty-book
// failure from either side.
func (b OrderBook) SpreadOf() (Spread, error) {
	bid, err := b.BestBid()
	if err != nil {
		return Spread{}, err
	}
	ask, err := b.BestAsk()
	if err != nil {
		return Spread{}, err
	}
	return Spread{BestBid: bid, BestAsk: ask}, nil
}

// Midpoint returns (best_bid + best_ask) / 2, propagating an empty-book
// failure from either side.
func (b OrderBook) Midpoint() (Price, error) {
	bid, err := b.BestBid()
	if err != nil {
		return Price{}, err
	}
	ask, err := b.BestAsk()
	if err != nil {
		return Price{}, err
	}
	return NewPrice((bid.Value() + ask.Value()) / 2.0)
}

// Depth returns the deepest side's level count (max, not min).
func (b OrderBook) Depth() int {
	if len(b.bids) > len(b.asks) {
		return len(b.bids)
	}
	return len(b.asks)
}

// Apply dispatches on the event's concrete variant and returns a new book.
// The four cases below are exhaustive over the closed Event sum type; a
// fifth variant declared in this package would reach the default case and
// panic.
func (b OrderBook) Apply(e Event) OrderBook {
	switch ev := e.(type) {
	case BookSnapshot:
		return b.applySnapshot(ev)
	case BookDelta:
		return b.applyDelta(ev)
	case TradeEvent:
		return b.applyTrade(ev)
	case TickSizeChange:
		return b.applyTickSizeChange(ev)
	default:
		panic("domain: unreachable event variant")
	}
}

func (b OrderBook) applySnapshot(e BookSnapshot) OrderBook {
	bids := append([]PriceLevel(nil), e.Bids...)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price.Greater(bids[j].Price) })

	asks := append([]PriceLevel(nil), e.Asks...)
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price.Less(asks[j].Price) })

	return OrderBook{
		asset:              b.asset,
		bids:               bids,
		asks:               asks,
		latestTrade:        b.latestTrade,
		tickSize:           b.tickSize,
		timestamp:          e.Head.Timestamp,
		lastSequenceNumber: e.Head.SequenceNumber,
		bookHash:           e.Hash,
	}
}

func (b OrderBook) applyDelta(e BookDelta) OrderBook {
	bids := b.bids
	asks := b.asks

	for _, change := range e.Changes {
		if change.Side == SideBuy {
			bids = upsertLevel(bids, change.Price, change.NewSize, descending)
		} else {
			asks = upsertLevel(asks, change.Price, change.NewSize, ascending)
		}
	}

	return OrderBook{
		asset:              b.asset,
		bids:               bids,
		asks:               asks,
		latestTrade:        b.latestTrade,
		tickSize:           b.tickSize,
		timestamp:          e.Head.Timestamp,
		lastSequenceNumber: e.Head.SequenceNumber,
		bookHash:           b.bookHash,
	}
}

func (b OrderBook) applyTrade(e TradeEvent) OrderBook {
	trade := e
	return OrderBook{
		asset:              b.asset,
		bids:               b.bids,
		asks:               b.asks,
		latestTrade:        &trade,
		tickSize:           b.tickSize,
		timestamp:          e.Head.Timestamp,
		lastSequenceNumber: e.Head.SequenceNumber,
		bookHash:           b.bookHash,
	}
}

func (b OrderBook) applyTickSizeChange(e TickSizeChange) OrderBook {
	return OrderBook{
		asset:              b.asset,
		bids:               b.bids,
		asks:               b.asks,
		latestTrade:        b.latestTrade,
		tickSize:           e.NewTickSize,
		timestamp:          e.Head.Timestamp,
		lastSequenceNumber: e.Head.SequenceNumber,
		bookHash:           b.bookHash,
	}
}

// ReconstructOrderBook rebuilds an OrderBook from flattened field values by
// applying a sequence of synthetic events, mirroring the four-step
// reconstruction spec §4.5.5 requires of snapshot-file readers. Shared by
// the columnar repository's snapshot reader and the optional Redis
// projection cache so both follow the exact same rule: start from empty,
// apply a synthetic BookSnapshot, then (conditionally) a synthetic
// TickSizeChange and a synthetic TradeEvent.
func ReconstructOrderBook(
	asset MarketAsset,
	bids, asks []PriceLevel,
	hash string,
	sequenceNumber uint64,
	timestamp Timestamp,
	tickSize Price,
	trade *TradeEvent,
) OrderBook {
	book := EmptyOrderBook(asset)

	book = book.Apply(BookSnapshot{
		Head: Header{Asset: asset, Timestamp: timestamp, SequenceNumber: sequenceNumber},
		Bids: bids,
		Asks: asks,
		Hash: hash,
	})

	if tickSize.Value() != DefaultTickSize().Value() {
		book = book.Apply(TickSizeChange{
			Head:        Header{Asset: asset, Timestamp: timestamp, SequenceNumber: sequenceNumber},
			OldTickSize: DefaultTickSize(),
			NewTickSize: tickSize,
		})
	}

	if trade != nil {
		t := *trade
		t.Head = Header{Asset: asset, Timestamp: trade.Head.Timestamp, SequenceNumber: sequenceNumber}
		book = book.Apply(t)
		// Applying the trade stamps the book with the trade's own time; the
		// stored book timestamp is the one to keep.
		book.timestamp = timestamp
	}

	return book
}

type sortOrder int

const (
	descending sortOrder = iota
	ascending
)

// upsertLevel returns a new slice with the level at price removed, replaced,
// or inserted, preserving the side's sort order. levels is never mutated in
// place: every branch either returns levels unchanged, a freshly built
// slice with one element removed, a copy with one element replaced, or a
// copy with one element inserted at the sorted position.
func upsertLevel(levels []PriceLevel, price Price, newSize Quantity, order sortOrder) []PriceLevel {
	idx := -1
	for i, lvl := range levels {
		if lvl.Price.Equal(price) {
			idx = i
			break
		}
	}

	if newSize.IsZero() {
		if idx == -1 {
			return levels
		}
		out := make([]PriceLevel, 0, len(levels)-1)
		out = append(out, levels[:idx]...)
		out = append(out, levels[idx+1:]...)
		return out
	}

	if idx != -1 {
		out := append([]PriceLevel(nil), levels...)
		out[idx] = NewPriceLevel(price, newSize)
		return out
	}

	pos := sort.Search(len(levels), func(i int) bool {
		if order == descending {
			return levels[i].Price.Less(price)
		}
		return levels[i].Price.Greater(price)
	})
	out := make([]PriceLevel, 0, len(levels)+1)
	out = append(out, levels[:pos]...)
	out = append(out, NewPriceLevel(price, newSize))
	out = append(out, levels[pos:]...)
	return out
}
