// Package execution is the Execution Engine (spec §4.8): turns
// ApprovedOrders into bracketed broker orders, tracks them through the
// Trade lifecycle, and reconciles local state against broker truth.
package execution

import (
	"bytes"
	"encoding/json"
	"os"
	"sync"
	"time"

	domainerrors "zerodha-trader/internal/errors"
)

// OutboxEntry is one intent-to-place-an-order record, written before the
// broker call is made so a crash between "decided to trade" and "broker
// acknowledged" can be replayed instead of silently lost. Grounded on
// RajChodisetti-Trading-app's internal/outbox (Order/Fill/OutboxEntry,
// file-based JSON append log keyed on an idempotency key).
type OutboxEntry struct {
	ClientTag string    `json:"client_tag"`
	TradeID   string    `json:"trade_id"`
	Symbol    string    `json:"symbol"`
	Intent    string    `json:"intent"` // "place", "modify", "cancel"
	WrittenAt time.Time `json:"written_at"`
	Dispatched bool     `json:"dispatched"`
}

// Outbox is an append-only JSON-lines journal of order intents, used to
// detect and replay in-flight calls across a process restart.
type Outbox struct {
	path string
	mu   sync.Mutex
	seen map[string]*OutboxEntry
}

// OpenOutbox loads an existing journal (if any) and appends from there.
func OpenOutbox(path string) (*Outbox, error) {
	o := &Outbox{path: path, seen: make(map[string]*OutboxEntry)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return o, nil
		}
		return nil, domainerrors.Wrap(err, "reading outbox journal")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var e OutboxEntry
		if err := dec.Decode(&e); err != nil {
			break
		}
		entry := e
		o.seen[e.ClientTag] = &entry
	}
	return o, nil
}

// WriteIntent appends a new (or updates an existing) intent record before
// the broker call is dispatched.
func (o *Outbox) WriteIntent(e OutboxEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	e.WrittenAt = time.Now()
	o.seen[e.ClientTag] = &e

	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return domainerrors.Wrap(err, "opening outbox journal")
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	return enc.Encode(e)
}

// MarkDispatched records that the broker call for clientTag completed
// (successfully or not) so a restart doesn't replay it.
func (o *Outbox) MarkDispatched(clientTag string) error {
	o.mu.Lock()
	e, ok := o.seen[clientTag]
	o.mu.Unlock()
	if !ok {
		return nil
	}
	e.Dispatched = true
	return o.WriteIntent(*e)
}

// Pending returns every recorded intent not yet marked dispatched —
// the replay set after a restart.
func (o *Outbox) Pending() []OutboxEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []OutboxEntry
	for _, e := range o.seen {
		if !e.Dispatched {
			out = append(out, *e)
		}
	}
	return out
}
