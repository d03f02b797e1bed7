package wire

import (
	"testing"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
)

func TestDecode_Book(t *testing.T) {
	raw := []byte(`{
		"msg_type": "book",
		"asset_id": "token-123",
		"market": "cond-abc",
		"timestamp": "1700000000000",
		"bids": [{"price": "0.4", "size": "100"}],
		"asks": [{"price": "0.6", "size": "50"}],
		"hash": "deadbeef"
	}`)

	event, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	h := event.Header()
	if h.Asset.TokenID != "token-123" || h.Asset.ConditionID != "cond-abc" {
		t.Errorf("unexpected asset: %+v", h.Asset)
	}
	if h.Timestamp.Milliseconds() != 1700000000000 {
		t.Errorf("timestamp = %d", h.Timestamp.Milliseconds())
	}
}

func TestDecode_PriceChange(t *testing.T) {
	raw := []byte(`{
		"msg_type": "price_change",
		"asset_id": "token-123",
		"market": "cond-abc",
		"timestamp": "1700000000000",
		"side": "BUY",
		"price": "0.45",
		"size": "0",
		"best_bid": "0.44",
		"best_ask": "0.46"
	}`)

	event, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	delta, ok := event.(domain.BookDelta)
	if !ok {
		t.Fatalf("expected domain.BookDelta, got %T", event)
	}
	if len(delta.Changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(delta.Changes))
	}
	if delta.Changes[0].Side != domain.SideBuy {
		t.Errorf("side = %v, want BUY", delta.Changes[0].Side)
	}
	if !delta.Changes[0].NewSize.IsZero() {
		t.Errorf("expected zero size (level removal), got %v", delta.Changes[0].NewSize)
	}
}

func TestDecode_UnknownType(t *testing.T) {
	raw := []byte(`{"msg_type": "nonsense"}`)
	if _, err := Decode(raw); err == nil {
		t.Fatal("expected error for unknown msg_type")
	}
}
