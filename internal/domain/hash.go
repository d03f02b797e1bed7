package domain

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// BookHash recomputes a Keccak-256 digest over a book's bid and ask levels.
// It is never required by OrderBook.Apply — the upstream BookSnapshot.hash
// is an opaque digest per spec and is stored as-is. This helper exists so a
// caller that wants to independently verify an upstream hash can do so
// against the same level data the aggregate holds.
func BookHash(bids, asks []PriceLevel) string {
	var sb strings.Builder
	for _, lvl := range bids {
		sb.WriteString(strconv.FormatFloat(lvl.Price.Value(), 'f', -1, 64))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(lvl.Size.Value(), 'f', -1, 64))
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	for _, lvl := range asks {
		sb.WriteString(strconv.FormatFloat(lvl.Price.Value(), 'f', -1, 64))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(lvl.Size.Value(), 'f', -1, 64))
		sb.WriteByte(',')
	}
	digest := crypto.Keccak256([]byte(sb.String()))
	return hex.EncodeToString(digest)
}
