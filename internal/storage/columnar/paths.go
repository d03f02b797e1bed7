package columnar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alanyoungcy/orderbookcore/internal/domain"
)

// tokenPrefix returns the first 8 characters of tokenID, or the whole
// string if shorter, used to shard the event-log directory tree by asset.
func tokenPrefix(tokenID string) string {
	if len(tokenID) <= 8 {
		return tokenID
	}
	return tokenID[:8]
}

// tokenHash returns the first 16 characters of tokenID, used as the
// snapshot filename stem. Despite the name this is a truncation, not a
// cryptographic digest — it matches ParquetOrderBookRepository's
// token_hash helper in original_source, which does the same.
func tokenHash(tokenID string) string {
	if len(tokenID) <= 16 {
		return tokenID
	}
	return tokenID[:16]
}

// eventDirectory returns the directory an event-log file for (kind, tokenID,
// ts) belongs under.
func eventDirectory(kind eventType, tokenID string, ts domain.Timestamp) string {
	date := ts.Time().Format("2006-01-02")
	return fmt.Sprintf("events/%s/%s/%s", kind, tokenPrefix(tokenID), date)
}

// eventFilename builds the sequence-range-encoded filename for a flushed
// buffer. hour is the two-digit UTC hour of the representative event.
func eventFilename(kind eventType, hour int, seqStart, seqEnd uint64) string {
	return fmt.Sprintf("%s_%02d_%d_%d.parquet", kind, hour, seqStart, seqEnd)
}

// parsedEventFilename holds the fields decoded out of an event-log filename.
type parsedEventFilename struct {
	kind     eventType
	hour     int
	seqStart uint64
	seqEnd   uint64
}

// parseEventFilename decodes a name built by eventFilename. Returns false
// (never an error) on malformed input: the read path treats a parse
// failure as "read this file defensively" rather than a hard error, per
// spec §4.5.4 step 2.
func parseEventFilename(name string) (parsedEventFilename, bool) {
	name = strings.TrimSuffix(name, ".parquet")
	parts := strings.Split(name, "_")
	if len(parts) < 4 {
		return parsedEventFilename{}, false
	}
	// event type names themselves contain underscores (e.g. book_snapshot),
	// so the last three parts are always hour/seq_start/seq_end and
	// everything before them is the event type.
	n := len(parts)
	hourStr, startStr, endStr := parts[n-3], parts[n-2], parts[n-1]
	kind := eventType(strings.Join(parts[:n-3], "_"))

	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return parsedEventFilename{}, false
	}
	seqStart, err := strconv.ParseUint(startStr, 10, 64)
	if err != nil {
		return parsedEventFilename{}, false
	}
	seqEnd, err := strconv.ParseUint(endStr, 10, 64)
	if err != nil {
		return parsedEventFilename{}, false
	}
	return parsedEventFilename{kind: kind, hour: hour, seqStart: seqStart, seqEnd: seqEnd}, true
}

// snapshotPath returns the single-row snapshot file path for tokenID.
func snapshotPath(tokenID string) string {
	return fmt.Sprintf("snapshots/%s.parquet", tokenHash(tokenID))
}

// eventListPrefix returns the recursive listing prefix for one event type
// and asset, used by the read path to enumerate candidate files.
func eventListPrefix(kind eventType, tokenID string) string {
	return fmt.Sprintf("events/%s/%s/", kind, tokenPrefix(tokenID))
}

func utcHour(ts domain.Timestamp) int {
	return ts.Time().Hour()
}
