package columnar

import (
	"fmt"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
)

// classify returns which shard e belongs to. Exhaustive over the four
// domain.Event variants; any other value reaches the default case and panics.
func classify(e domain.Event) eventType {
	switch e.(type) {
	case domain.BookSnapshot:
		return eventTypeBookSnapshot
	case domain.BookDelta:
		return eventTypeBookDelta
	case domain.TradeEvent:
		return eventTypeTradeEvent
	case domain.TickSizeChange:
		return eventTypeTickSizeChange
	default:
		panic("columnar: unreachable event variant")
	}
}

func levelsToColumns(levels []domain.PriceLevel) (prices, sizes []float64) {
	prices = make([]float64, len(levels))
	sizes = make([]float64, len(levels))
	for i, l := range levels {
		prices[i] = l.Price.Value()
		sizes[i] = l.Size.Value()
	}
	return prices, sizes
}

func columnsToLevels(prices, sizes []float64) ([]domain.PriceLevel, error) {
	if len(prices) != len(sizes) {
		return nil, fmt.Errorf("columnar: mismatched price/size column lengths (%d/%d): %w", len(prices), len(sizes), domain.ErrParse)
	}
	out := make([]domain.PriceLevel, len(prices))
	for i := range prices {
		p, err := domain.NewPrice(prices[i])
		if err != nil {
			return nil, err
		}
		q, err := domain.NewQuantity(sizes[i])
		if err != nil {
			return nil, err
		}
		out[i] = domain.NewPriceLevel(p, q)
	}
	return out, nil
}

func toSnapshotRow(e domain.BookSnapshot) bookSnapshotRow {
	bidPrices, bidSizes := levelsToColumns(e.Bids)
	askPrices, askSizes := levelsToColumns(e.Asks)
	return bookSnapshotRow{
		ConditionID:    e.Head.Asset.ConditionID,
		TokenID:        e.Head.Asset.TokenID,
		TimestampMs:    e.Head.Timestamp.Milliseconds(),
		SequenceNumber: e.Head.SequenceNumber,
		Hash:           e.Hash,
		BidPrices:      bidPrices,
		BidSizes:       bidSizes,
		AskPrices:      askPrices,
		AskSizes:       askSizes,
	}
}

func fromSnapshotRow(r bookSnapshotRow) (domain.Event, error) {
	asset, err := domain.NewMarketAsset(r.ConditionID, r.TokenID)
	if err != nil {
		return nil, err
	}
	ts, err := domain.NewTimestamp(r.TimestampMs)
	if err != nil {
		return nil, err
	}
	bids, err := columnsToLevels(r.BidPrices, r.BidSizes)
	if err != nil {
		return nil, err
	}
	asks, err := columnsToLevels(r.AskPrices, r.AskSizes)
	if err != nil {
		return nil, err
	}
	return domain.BookSnapshot{
		Head: domain.Header{Asset: asset, Timestamp: ts, SequenceNumber: r.SequenceNumber},
		Bids: bids,
		Asks: asks,
		Hash: r.Hash,
	}, nil
}

func toDeltaRow(e domain.BookDelta) bookDeltaRow {
	n := len(e.Changes)
	row := bookDeltaRow{
		ConditionID:    e.Head.Asset.ConditionID,
		TokenID:        e.Head.Asset.TokenID,
		TimestampMs:    e.Head.Timestamp.Milliseconds(),
		SequenceNumber: e.Head.SequenceNumber,
		ChangeAssetIDs: make([]string, n),
		ChangePrices:   make([]float64, n),
		ChangeNewSizes: make([]float64, n),
		ChangeSides:    make([]uint8, n),
		ChangeBestBids: make([]float64, n),
		ChangeBestAsks: make([]float64, n),
	}
	for i, c := range e.Changes {
		row.ChangeAssetIDs[i] = c.AssetID
		row.ChangePrices[i] = c.Price.Value()
		row.ChangeNewSizes[i] = c.NewSize.Value()
		row.ChangeSides[i] = uint8(c.Side)
		row.ChangeBestBids[i] = c.BestBid.Value()
		row.ChangeBestAsks[i] = c.BestAsk.Value()
	}
	return row
}

func fromDeltaRow(r bookDeltaRow) (domain.Event, error) {
	asset, err := domain.NewMarketAsset(r.ConditionID, r.TokenID)
	if err != nil {
		return nil, err
	}
	ts, err := domain.NewTimestamp(r.TimestampMs)
	if err != nil {
		return nil, err
	}
	n := len(r.ChangeAssetIDs)
	changes := make([]domain.PriceLevelDelta, n)
	for i := 0; i < n; i++ {
		price, err := domain.NewPrice(r.ChangePrices[i])
		if err != nil {
			return nil, err
		}
		size, err := domain.NewQuantity(r.ChangeNewSizes[i])
		if err != nil {
			return nil, err
		}
		bestBid, err := domain.NewPrice(r.ChangeBestBids[i])
		if err != nil {
			return nil, err
		}
		bestAsk, err := domain.NewPrice(r.ChangeBestAsks[i])
		if err != nil {
			return nil, err
		}
		changes[i] = domain.PriceLevelDelta{
			AssetID: r.ChangeAssetIDs[i],
			Price:   price,
			NewSize: size,
			Side:    domain.Side(r.ChangeSides[i]),
			BestBid: bestBid,
			BestAsk: bestAsk,
		}
	}
	return domain.BookDelta{
		Head:    domain.Header{Asset: asset, Timestamp: ts, SequenceNumber: r.SequenceNumber},
		Changes: changes,
	}, nil
}

func toTradeRow(e domain.TradeEvent) tradeEventRow {
	return tradeEventRow{
		ConditionID:    e.Head.Asset.ConditionID,
		TokenID:        e.Head.Asset.TokenID,
		TimestampMs:    e.Head.Timestamp.Milliseconds(),
		SequenceNumber: e.Head.SequenceNumber,
		Price:          e.Price.Value(),
		Size:           e.Size.Value(),
		Side:           uint8(e.Side),
		FeeRateBps:     e.FeeRateBps,
	}
}

func fromTradeRow(r tradeEventRow) (domain.Event, error) {
	asset, err := domain.NewMarketAsset(r.ConditionID, r.TokenID)
	if err != nil {
		return nil, err
	}
	ts, err := domain.NewTimestamp(r.TimestampMs)
	if err != nil {
		return nil, err
	}
	price, err := domain.NewPrice(r.Price)
	if err != nil {
		return nil, err
	}
	size, err := domain.NewQuantity(r.Size)
	if err != nil {
		return nil, err
	}
	return domain.TradeEvent{
		Head:       domain.Header{Asset: asset, Timestamp: ts, SequenceNumber: r.SequenceNumber},
		Price:      price,
		Size:       size,
		Side:       domain.Side(r.Side),
		FeeRateBps: r.FeeRateBps,
	}, nil
}

func toTickSizeRow(e domain.TickSizeChange) tickSizeChangeRow {
	return tickSizeChangeRow{
		ConditionID:    e.Head.Asset.ConditionID,
		TokenID:        e.Head.Asset.TokenID,
		TimestampMs:    e.Head.Timestamp.Milliseconds(),
		SequenceNumber: e.Head.SequenceNumber,
		OldTickSize:    e.OldTickSize.Value(),
		NewTickSize:    e.NewTickSize.Value(),
	}
}

func fromTickSizeRow(r tickSizeChangeRow) (domain.Event, error) {
	asset, err := domain.NewMarketAsset(r.ConditionID, r.TokenID)
	if err != nil {
		return nil, err
	}
	ts, err := domain.NewTimestamp(r.TimestampMs)
	if err != nil {
		return nil, err
	}
	oldTick, err := domain.NewPrice(r.OldTickSize)
	if err != nil {
		return nil, err
	}
	newTick, err := domain.NewPrice(r.NewTickSize)
	if err != nil {
		return nil, err
	}
	return domain.TickSizeChange{
		Head:        domain.Header{Asset: asset, Timestamp: ts, SequenceNumber: r.SequenceNumber},
		OldTickSize: oldTick,
		NewTickSize: newTick,
	}, nil
}

func toSnapshotFileRow(book domain.OrderBook) snapshotRow {
	bidPrices, bidSizes := levelsToColumns(book.Bids())
	askPrices, askSizes := levelsToColumns(book.Asks())

	row := snapshotRow{
		ConditionID:    book.Asset().ConditionID,
		TokenID:        book.Asset().TokenID,
		TimestampMs:    book.Timestamp().Milliseconds(),
		SequenceNumber: book.LastSequenceNumber(),
		TickSize:       book.TickSize().Value(),
		BookHash:       book.BookHash(),
		BidPrices:      bidPrices,
		BidSizes:       bidSizes,
		AskPrices:      askPrices,
		AskSizes:       askSizes,
	}

	if trade, ok := book.LatestTrade(); ok {
		row.HasTrade = true
		row.TradePrice = trade.Price.Value()
		row.TradeSize = trade.Size.Value()
		row.TradeSide = uint8(trade.Side)
		row.TradeFeeRateBps = trade.FeeRateBps
		row.TradeTimestampMs = trade.Head.Timestamp.Milliseconds()
	}

	return row
}

func fromSnapshotFileRow(r snapshotRow) (domain.OrderBook, error) {
	asset, err := domain.NewMarketAsset(r.ConditionID, r.TokenID)
	if err != nil {
		return domain.OrderBook{}, err
	}
	ts, err := domain.NewTimestamp(r.TimestampMs)
	if err != nil {
		return domain.OrderBook{}, err
	}
	tickSize, err := domain.NewPrice(r.TickSize)
	if err != nil {
		return domain.OrderBook{}, err
	}
	bids, err := columnsToLevels(r.BidPrices, r.BidSizes)
	if err != nil {
		return domain.OrderBook{}, err
	}
	asks, err := columnsToLevels(r.AskPrices, r.AskSizes)
	if err != nil {
		return domain.OrderBook{}, err
	}

	var trade *domain.TradeEvent
	if r.HasTrade {
		tradeTs, err := domain.NewTimestamp(r.TradeTimestampMs)
		if err != nil {
			return domain.OrderBook{}, err
		}
		price, err := domain.NewPrice(r.TradePrice)
		if err != nil {
			return domain.OrderBook{}, err
		}
		size, err := domain.NewQuantity(r.TradeSize)
		if err != nil {
			return domain.OrderBook{}, err
		}
		trade = &domain.TradeEvent{
			Head:       domain.Header{Asset: asset, Timestamp: tradeTs, SequenceNumber: r.SequenceNumber},
			Price:      price,
			Size:       size,
			Side:       domain.Side(r.TradeSide),
			FeeRateBps: r.TradeFeeRateBps,
		}
	}

	return domain.ReconstructOrderBook(asset, bids, asks, r.BookHash, r.SequenceNumber, ts, tickSize, trade), nil
}
