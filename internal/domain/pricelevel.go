package domain

// PriceLevel is a single price+size entry on one side of an OrderBook.
type PriceLevel struct {
	Price Price
	Size  Quantity
}

// NewPriceLevel constructs a PriceLevel from already-validated components.
func NewPriceLevel(price Price, size Quantity) PriceLevel {
	return PriceLevel{Price: price, Size: size}
}

// PriceLevelFromStrings parses price and size literals into a PriceLevel.
func PriceLevelFromStrings(price, size string) (PriceLevel, error) {
	p, err := PriceFromString(price)
	if err != nil {
		return PriceLevel{}, err
	}
	q, err := QuantityFromString(size)
	if err != nil {
		return PriceLevel{}, err
	}
	return NewPriceLevel(p, q), nil
}

// Less orders levels by price, then by size. The aggregate does not use it;
// side sort order is enforced by the aggregate's own price comparisons.
func (l PriceLevel) Less(other PriceLevel) bool {
	if !l.Price.Equal(other.Price) {
		return l.Price.Less(other.Price)
	}
	return l.Size.Value() < other.Size.Value()
}
