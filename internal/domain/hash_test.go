package domain

import "testing"

func TestBookHash_DeterministicAndOrderSensitive(t *testing.T) {
	bids := []PriceLevel{NewPriceLevel(mustPrice(t, 0.40), mustQuantity(t, 10))}
	asks := []PriceLevel{NewPriceLevel(mustPrice(t, 0.60), mustQuantity(t, 5))}

	h1 := BookHash(bids, asks)
	h2 := BookHash(bids, asks)
	if h1 != h2 {
		t.Fatalf("BookHash not deterministic: %q vs %q", h1, h2)
	}

	otherAsks := []PriceLevel{NewPriceLevel(mustPrice(t, 0.61), mustQuantity(t, 5))}
	h3 := BookHash(bids, otherAsks)
	if h1 == h3 {
		t.Fatal("BookHash did not change when ask levels changed")
	}
}

func TestBookHash_DistinguishesBidsFromAsks(t *testing.T) {
	side := []PriceLevel{NewPriceLevel(mustPrice(t, 0.40), mustQuantity(t, 10))}
	empty := []PriceLevel{}

	h1 := BookHash(side, empty)
	h2 := BookHash(empty, side)
	if h1 == h2 {
		t.Fatal("BookHash did not distinguish bid-side vs ask-side placement")
	}
}
