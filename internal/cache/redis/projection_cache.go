package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
)

// projectionDTO is the JSON wire shape stored per asset. It flattens
// domain.OrderBook's exported accessors; reconstruction goes back through
// domain.ReconstructOrderBook so the cache never invents a second way to
// build a book.
type projectionDTO struct {
	ConditionID    string              `json:"condition_id"`
	TokenID        string              `json:"token_id"`
	Bids           []levelDTO          `json:"bids"`
	Asks           []levelDTO          `json:"asks"`
	Hash           string              `json:"hash"`
	SequenceNumber uint64              `json:"sequence_number"`
	TimestampMs    int64               `json:"timestamp_ms"`
	TickSize       float64             `json:"tick_size"`
	HasTrade       bool                `json:"has_trade"`
	Trade          *tradeDTO           `json:"trade,omitempty"`
}

type levelDTO struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

type tradeDTO struct {
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	Side       uint8   `json:"side"`
	FeeRateBps string  `json:"fee_rate_bps"`
}

// ProjectionCache is a read-through mirror of OrderBookService's current
// books, for processes that want to query books without talking to the
// ingestion process directly. It implements service.ProjectionCache.
type ProjectionCache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewProjectionCache creates a ProjectionCache backed by the given Client.
func NewProjectionCache(c *Client, logger *slog.Logger) *ProjectionCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectionCache{
		rdb:    c.Underlying(),
		logger: logger.With(slog.String("component", "redis_projection_cache")),
	}
}

func bookKey(asset domain.MarketAsset) string {
	return "book:" + asset.ConditionID + ":" + asset.TokenID
}

// Set mirrors book into Redis. Failures are logged, never propagated: per
// SPEC_FULL.md this cache is a best-effort convenience, not part of the
// core's correctness surface.
func (c *ProjectionCache) Set(ctx context.Context, book domain.OrderBook) {
	dto := toDTO(book)
	data, err := json.Marshal(dto)
	if err != nil {
		c.logger.Error("marshal projection", slog.String("error", err.Error()))
		return
	}
	if err := c.rdb.Set(ctx, bookKey(book.Asset()), data, 0).Err(); err != nil {
		c.logger.Error("set projection", slog.String("error", err.Error()))
	}
}

// Get reads back a mirrored projection for asset, if present.
func (c *ProjectionCache) Get(ctx context.Context, asset domain.MarketAsset) (domain.OrderBook, bool, error) {
	data, err := c.rdb.Get(ctx, bookKey(asset)).Bytes()
	if err == redis.Nil {
		return domain.OrderBook{}, false, nil
	}
	if err != nil {
		return domain.OrderBook{}, false, fmt.Errorf("redis: get projection %s/%s: %w", asset.ConditionID, asset.TokenID, err)
	}

	var dto projectionDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domain.OrderBook{}, false, fmt.Errorf("redis: decode projection %s/%s: %w", asset.ConditionID, asset.TokenID, err)
	}
	book, err := fromDTO(asset, dto)
	if err != nil {
		return domain.OrderBook{}, false, err
	}
	return book, true, nil
}

func toDTO(book domain.OrderBook) projectionDTO {
	asset := book.Asset()
	dto := projectionDTO{
		ConditionID:    asset.ConditionID,
		TokenID:        asset.TokenID,
		Hash:           book.BookHash(),
		SequenceNumber: book.LastSequenceNumber(),
		TimestampMs:    book.Timestamp().Milliseconds(),
		TickSize:       book.TickSize().Value(),
	}
	for _, lvl := range book.Bids() {
		dto.Bids = append(dto.Bids, levelDTO{Price: lvl.Price.Value(), Size: lvl.Size.Value()})
	}
	for _, lvl := range book.Asks() {
		dto.Asks = append(dto.Asks, levelDTO{Price: lvl.Price.Value(), Size: lvl.Size.Value()})
	}
	if trade, ok := book.LatestTrade(); ok {
		dto.HasTrade = true
		dto.Trade = &tradeDTO{
			Price:      trade.Price.Value(),
			Size:       trade.Size.Value(),
			Side:       uint8(trade.Side),
			FeeRateBps: trade.FeeRateBps,
		}
	}
	return dto
}

func fromDTO(asset domain.MarketAsset, dto projectionDTO) (domain.OrderBook, error) {
	bids, err := levelsFromDTO(dto.Bids)
	if err != nil {
		return domain.OrderBook{}, err
	}
	asks, err := levelsFromDTO(dto.Asks)
	if err != nil {
		return domain.OrderBook{}, err
	}
	tickSize, err := domain.NewPrice(dto.TickSize)
	if err != nil {
		return domain.OrderBook{}, err
	}
	timestamp, err := domain.NewTimestamp(dto.TimestampMs)
	if err != nil {
		return domain.OrderBook{}, err
	}

	var trade *domain.TradeEvent
	if dto.HasTrade && dto.Trade != nil {
		price, err := domain.NewPrice(dto.Trade.Price)
		if err != nil {
			return domain.OrderBook{}, err
		}
		size, err := domain.NewQuantity(dto.Trade.Size)
		if err != nil {
			return domain.OrderBook{}, err
		}
		trade = &domain.TradeEvent{
			Price:      price,
			Size:       size,
			Side:       domain.Side(dto.Trade.Side),
			FeeRateBps: dto.Trade.FeeRateBps,
		}
	}

	return domain.ReconstructOrderBook(asset, bids, asks, dto.Hash, dto.SequenceNumber, timestamp, tickSize, trade), nil
}

func levelsFromDTO(levels []levelDTO) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := domain.NewPrice(lvl.Price)
		if err != nil {
			return nil, err
		}
		size, err := domain.NewQuantity(lvl.Size)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.NewPriceLevel(price, size))
	}
	return out, nil
}
