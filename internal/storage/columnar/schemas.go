// Package columnar implements the partitioned, type-sharded, buffered
// Parquet event log and per-asset snapshot store described in spec §4.5 and
// §6.2. It is the largest single piece of the core, grounded on
// original_source/src/repositories/parquet/{ParquetOrderBookRepository,
// ParquetSchemas}.{hpp,cpp} — the Apache Arrow/Parquet implementation this
// spec was distilled from — reimplemented with parquet-go/parquet-go, the
// pure-Go ecosystem analogue (no repo in the retrieval pack imports a
// Parquet library; see DESIGN.md).
//
// Partitioning is a read-path hint, not a correctness contract: a flush
// that spans more than one asset or UTC date still places every row of the
// buffer under the first event's partition. Readers must not rely on
// partition purity; get_events_since always re-filters every row by asset
// and sequence number (spec §4.5.3, §4.5.4).
package columnar

// bookSnapshotRow is the §6.2.3 schema.
type bookSnapshotRow struct {
	ConditionID    string    `parquet:"condition_id"`
	TokenID        string    `parquet:"token_id"`
	TimestampMs    int64     `parquet:"timestamp_ms"`
	SequenceNumber uint64    `parquet:"sequence_number"`
	Hash           string    `parquet:"hash"`
	BidPrices      []float64 `parquet:"bid_prices,list"`
	BidSizes       []float64 `parquet:"bid_sizes,list"`
	AskPrices      []float64 `parquet:"ask_prices,list"`
	AskSizes       []float64 `parquet:"ask_sizes,list"`
}

// bookDeltaRow is the §6.2.4 schema.
type bookDeltaRow struct {
	ConditionID      string    `parquet:"condition_id"`
	TokenID          string    `parquet:"token_id"`
	TimestampMs      int64     `parquet:"timestamp_ms"`
	SequenceNumber   uint64    `parquet:"sequence_number"`
	ChangeAssetIDs   []string  `parquet:"change_asset_ids,list"`
	ChangePrices     []float64 `parquet:"change_prices,list"`
	ChangeNewSizes   []float64 `parquet:"change_new_sizes,list"`
	ChangeSides      []uint8   `parquet:"change_sides,list"`
	ChangeBestBids   []float64 `parquet:"change_best_bids,list"`
	ChangeBestAsks   []float64 `parquet:"change_best_asks,list"`
}

// tradeEventRow is the §6.2.5 schema.
type tradeEventRow struct {
	ConditionID    string  `parquet:"condition_id"`
	TokenID        string  `parquet:"token_id"`
	TimestampMs    int64   `parquet:"timestamp_ms"`
	SequenceNumber uint64  `parquet:"sequence_number"`
	Price          float64 `parquet:"price"`
	Size           float64 `parquet:"size"`
	Side           uint8   `parquet:"side"`
	FeeRateBps     string  `parquet:"fee_rate_bps"`
}

// tickSizeChangeRow is the §6.2.6 schema.
type tickSizeChangeRow struct {
	ConditionID    string  `parquet:"condition_id"`
	TokenID        string  `parquet:"token_id"`
	TimestampMs    int64   `parquet:"timestamp_ms"`
	SequenceNumber uint64  `parquet:"sequence_number"`
	OldTickSize    float64 `parquet:"old_tick_size"`
	NewTickSize    float64 `parquet:"new_tick_size"`
}

// snapshotRow is the 16-column §6.2.7 schema.
type snapshotRow struct {
	ConditionID     string    `parquet:"condition_id"`
	TokenID         string    `parquet:"token_id"`
	TimestampMs     int64     `parquet:"timestamp_ms"`
	SequenceNumber  uint64    `parquet:"sequence_number"`
	TickSize        float64   `parquet:"tick_size"`
	BookHash        string    `parquet:"book_hash"`
	BidPrices       []float64 `parquet:"bid_prices,list"`
	BidSizes        []float64 `parquet:"bid_sizes,list"`
	AskPrices       []float64 `parquet:"ask_prices,list"`
	AskSizes        []float64 `parquet:"ask_sizes,list"`
	TradePrice      float64   `parquet:"trade_price"`
	TradeSize       float64   `parquet:"trade_size"`
	TradeSide       uint8     `parquet:"trade_side"`
	TradeFeeRateBps string    `parquet:"trade_fee_rate_bps"`
	TradeTimestampMs int64    `parquet:"trade_timestamp_ms"`
	HasTrade        bool      `parquet:"has_trade"`
}

// eventType identifies one of the four event-log shards.
type eventType string

const (
	eventTypeBookSnapshot   eventType = "book_snapshot"
	eventTypeBookDelta      eventType = "book_delta"
	eventTypeTradeEvent     eventType = "trade_event"
	eventTypeTickSizeChange eventType = "tick_size_change"
)

var allEventTypes = [4]eventType{
	eventTypeBookSnapshot,
	eventTypeBookDelta,
	eventTypeTradeEvent,
	eventTypeTickSizeChange,
}
