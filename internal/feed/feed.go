// Package feed defines the external event feed contract consumed by the
// order book service. The wire protocol parser, transport, and reconnection
// logic behind a concrete Feed are out of scope for the core (see
// internal/feed/polymarket for a reference adapter); the core only relies
// on this interface's delivery contract.
package feed

import "github.com/alanyoungcy/orderbookcore/internal/domain"

// OnEvent is invoked once per parsed event, in callback order, on a single
// logical thread. Implementations must never invoke it concurrently with
// itself.
type OnEvent func(event domain.Event)

// Feed is the collaborator contract described in spec §6.1.
type Feed interface {
	// SetOnEvent installs the callback the feed drives ingestion through.
	// Must be called before Start.
	SetOnEvent(cb OnEvent)

	// Subscribe registers interest in a token ID. May be called before or
	// after Start depending on the implementation.
	Subscribe(tokenID string) error

	// Start begins delivering events. Blocks until Stop is called or the
	// feed's context is cancelled.
	Start() error

	// Stop ends delivery. Safe to call multiple times.
	Stop() error
}
