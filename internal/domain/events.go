package domain

// Header carries the fields common to every event variant. The sequence
// number is always assigned by OrderBookService, never by upstream; inbound
// events arrive with SequenceNumber == 0.
type Header struct {
	Asset          MarketAsset
	Timestamp      Timestamp
	SequenceNumber uint64
}

// Event is the closed sum type of all four order book event variants. The
// unexported marker method keeps the set closed at the package boundary:
// only types declared in this package can implement it, and the four
// declared here are exactly the cases a type switch over Event handles.
type Event interface {
	orderBookEvent()
	Header() Header
}

// BookSnapshot semantically replaces the current book's bid/ask levels.
type BookSnapshot struct {
	Head Header
	Bids []PriceLevel
	Asks []PriceLevel
	Hash string // opaque upstream digest, may be empty
}

func (BookSnapshot) orderBookEvent()     {}
func (e BookSnapshot) Header() Header    { return e.Head }

// PriceLevelDelta is a single incremental level change within a BookDelta.
// AssetID and the BBO fields are preserved for callers but are not required
// by OrderBook.Apply.
type PriceLevelDelta struct {
	AssetID string
	Price   Price
	NewSize Quantity // 0 means "remove the level at this price"
	Side    Side
	BestBid Price
	BestAsk Price
}

// BookDelta patches individual price levels on one side of the book.
type BookDelta struct {
	Head    Header
	Changes []PriceLevelDelta
}

func (BookDelta) orderBookEvent()  {}
func (e BookDelta) Header() Header { return e.Head }

// TradeEvent records the most recent execution for an asset. It never
// mutates book sides; a BookSnapshot carrying the post-trade book always
// follows a trade upstream.
type TradeEvent struct {
	Head       Header
	Price      Price
	Size       Quantity
	Side       Side
	FeeRateBps string
}

func (TradeEvent) orderBookEvent()  {}
func (e TradeEvent) Header() Header { return e.Head }

// TickSizeChange updates the minimum price increment carried as book state.
type TickSizeChange struct {
	Head         Header
	OldTickSize  Price
	NewTickSize  Price
}

func (TickSizeChange) orderBookEvent() {}
func (e TickSizeChange) Header() Header { return e.Head }

// WithSequenceNumber returns a copy of e with its header's sequence number
// overwritten. Used by OrderBookService.OnEvent to assign the globally
// monotonic sequence at ingestion time without mutating the caller's event.
func WithSequenceNumber(e Event, seq uint64) Event {
	switch v := e.(type) {
	case BookSnapshot:
		v.Head.SequenceNumber = seq
		return v
	case BookDelta:
		v.Head.SequenceNumber = seq
		return v
	case TradeEvent:
		v.Head.SequenceNumber = seq
		return v
	case TickSizeChange:
		v.Head.SequenceNumber = seq
		return v
	default:
		panic("domain: unreachable event variant")
	}
}
