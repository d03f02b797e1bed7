// Package wire decodes upstream feed frames into domain.Event values. The
// JSON shape is modeled on the teacher's Polymarket CLOB WebSocket frames
// (internal/platform/polymarket/types.go: WSMessage/BookMessage/
// PriceChangeMessage/PriceMessage), generalized to cover all four closed
// event variants instead of just book/price_change/last_trade_price.
package wire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
)

// envelope is the outer frame every upstream message arrives wrapped in.
// OccurredAt is an optional protobuf well-known timestamp a collaborator
// may attach alongside the plain Timestamp field (epoch milliseconds or an
// RFC 3339 string); when present it takes precedence (spec's feed adapter is out of
// scope for correctness, so this is a supplementary, not required, path).
type envelope struct {
	MsgType    string                 `json:"msg_type"`
	AssetID    string                 `json:"asset_id"`
	Market     string                 `json:"market"`
	Timestamp  string                 `json:"timestamp"`
	OccurredAt *timestamppb.Timestamp `json:"occurred_at,omitempty"`
}

type bookFrame struct {
	envelope
	Bids []levelFrame `json:"bids"`
	Asks []levelFrame `json:"asks"`
	Hash string       `json:"hash"`
}

type levelFrame struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type priceChangeFrame struct {
	envelope
	Side    string `json:"side"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

type tradeFrame struct {
	envelope
	Side       string `json:"side"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	FeeRateBps string `json:"fee_rate_bps"`
}

type tickSizeFrame struct {
	envelope
	OldTickSize string `json:"old_tick_size"`
	NewTickSize string `json:"new_tick_size"`
}

// Decode parses a raw upstream frame into the matching domain.Event. The
// asset is derived from the frame's own asset_id/market fields rather than
// supplied by the caller, since a single feed connection multiplexes many
// subscribed assets over one socket.
func Decode(raw []byte) (domain.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("wire: decode envelope: %w", domain.ErrParse)
	}

	switch env.MsgType {
	case "book":
		var f bookFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("wire: decode book frame: %w", domain.ErrParse)
		}
		return bookFrameToEvent(f)
	case "price_change":
		var f priceChangeFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("wire: decode price_change frame: %w", domain.ErrParse)
		}
		return priceChangeFrameToEvent(f)
	case "last_trade_price", "trade":
		var f tradeFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("wire: decode trade frame: %w", domain.ErrParse)
		}
		return tradeFrameToEvent(f)
	case "tick_size_change":
		var f tickSizeFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("wire: decode tick_size_change frame: %w", domain.ErrParse)
		}
		return tickSizeFrameToEvent(f)
	default:
		return nil, fmt.Errorf("wire: unknown msg_type %q: %w", env.MsgType, domain.ErrParse)
	}
}

func timestampFromFrame(env envelope) (domain.Timestamp, error) {
	if env.OccurredAt != nil {
		return domain.TimestampFromTime(env.OccurredAt.AsTime())
	}
	if env.Timestamp == "" {
		return domain.TimestampFromTime(time.Now().UTC())
	}
	if ms, err := strconv.ParseInt(env.Timestamp, 10, 64); err == nil {
		return domain.NewTimestamp(ms)
	}
	if t, err := time.Parse(time.RFC3339, env.Timestamp); err == nil {
		return domain.TimestampFromTime(t)
	}
	return domain.Timestamp{}, fmt.Errorf("wire: unparseable timestamp %q: %w", env.Timestamp, domain.ErrParse)
}

func header(env envelope) (domain.Header, error) {
	asset, err := domain.NewMarketAsset(env.Market, env.AssetID)
	if err != nil {
		return domain.Header{}, err
	}
	ts, err := timestampFromFrame(env)
	if err != nil {
		return domain.Header{}, err
	}
	return domain.Header{Asset: asset, Timestamp: ts}, nil
}

func levelsFromFrames(frames []levelFrame) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, len(frames))
	for i, f := range frames {
		lvl, err := domain.PriceLevelFromStrings(f.Price, f.Size)
		if err != nil {
			return nil, err
		}
		out[i] = lvl
	}
	return out, nil
}

func bookFrameToEvent(f bookFrame) (domain.Event, error) {
	head, err := header(f.envelope)
	if err != nil {
		return nil, err
	}
	bids, err := levelsFromFrames(f.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := levelsFromFrames(f.Asks)
	if err != nil {
		return nil, err
	}
	return domain.BookSnapshot{Head: head, Bids: bids, Asks: asks, Hash: f.Hash}, nil
}

func priceChangeFrameToEvent(f priceChangeFrame) (domain.Event, error) {
	head, err := header(f.envelope)
	if err != nil {
		return nil, err
	}
	side, err := domain.SideFromString(f.Side)
	if err != nil {
		return nil, err
	}
	price, err := domain.PriceFromString(f.Price)
	if err != nil {
		return nil, err
	}
	size, err := domain.QuantityFromString(f.Size)
	if err != nil {
		return nil, err
	}

	bestBid := domain.ZeroPrice()
	if f.BestBid != "" {
		if bestBid, err = domain.PriceFromString(f.BestBid); err != nil {
			return nil, err
		}
	}
	bestAsk := domain.ZeroPrice()
	if f.BestAsk != "" {
		if bestAsk, err = domain.PriceFromString(f.BestAsk); err != nil {
			return nil, err
		}
	}

	return domain.BookDelta{
		Head: head,
		Changes: []domain.PriceLevelDelta{{
			AssetID: head.Asset.TokenID,
			Price:   price,
			NewSize: size,
			Side:    side,
			BestBid: bestBid,
			BestAsk: bestAsk,
		}},
	}, nil
}

func tradeFrameToEvent(f tradeFrame) (domain.Event, error) {
	head, err := header(f.envelope)
	if err != nil {
		return nil, err
	}
	side, err := domain.SideFromString(f.Side)
	if err != nil {
		return nil, err
	}
	price, err := domain.PriceFromString(f.Price)
	if err != nil {
		return nil, err
	}
	size, err := domain.QuantityFromString(f.Size)
	if err != nil {
		return nil, err
	}
	return domain.TradeEvent{Head: head, Price: price, Size: size, Side: side, FeeRateBps: f.FeeRateBps}, nil
}

func tickSizeFrameToEvent(f tickSizeFrame) (domain.Event, error) {
	head, err := header(f.envelope)
	if err != nil {
		return nil, err
	}
	oldTick, err := domain.PriceFromString(f.OldTickSize)
	if err != nil {
		return nil, err
	}
	newTick, err := domain.PriceFromString(f.NewTickSize)
	if err != nil {
		return nil, err
	}
	return domain.TickSizeChange{Head: head, OldTickSize: oldTick, NewTickSize: newTick}, nil
}
