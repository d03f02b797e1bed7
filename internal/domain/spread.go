package domain

// Spread is the gap between the best bid and best ask of an OrderBook.
type Spread struct {
	BestBid Price
	BestAsk Price
}

// Value returns best_ask - best_bid.
func (s Spread) Value() float64 {
	return s.BestAsk.Value() - s.BestBid.Value()
}
