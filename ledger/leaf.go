package ledger

import (
	"fmt"
	"time"
)

// EventStatus is the outcome recorded by a leaf EVENT record.
type EventStatus string

const (
	StatusPresent EventStatus = "Present"
	StatusAbsent  EventStatus = "Absent"
	StatusLeave   EventStatus = "Leave"
)

// EventStatuses lists the recognized statuses in display order.
var EventStatuses = []EventStatus{StatusPresent, StatusAbsent, StatusLeave}

func (s EventStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLeave:
		return true
	}
	return false
}

// DateLayout is used when an event is recorded without a date.
const DateLayout = "2006-01-02"

func newCounters() map[EventStatus]int {
	c := make(map[EventStatus]int, len(EventStatuses))
	for _, s := range EventStatuses {
		c[s] = 0
	}
	return c
}

// RecordEvent appends an EVENT record and bumps the matching counter under
// the same lock, so the counters never drift from the ledger.
func (e *Entity) RecordEvent(status EventStatus, date string, extra Record) (*Block, error) {
	if e.kind.tier != TierLeafEntity {
		return nil, fmt.Errorf("%w: events are recorded on leaf entities, not %s", ErrInvalidArgument, e.kind.tier)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: event status %q, must be one of %v", ErrInvalidArgument, status, EventStatuses)
	}
	if date == "" {
		date = time.Now().UTC().Format(DateLayout)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.kind.identity(e)
	rec[FieldType] = string(LeafEntityEvent)
	merge(rec, extra, append(e.kind.reserved(e), FieldStatus, FieldDate)...)
	rec[FieldStatus] = string(status)
	rec[FieldDate] = date

	b, err := e.chain.Append(rec)
	if err != nil {
		return nil, err
	}
	e.counters[status]++
	e.metadata.UpdatedAt = time.Now().UTC()
	return b, nil
}

// EventEntry is one EVENT block.
type EventEntry struct {
	BlockIndex int64       `json:"blockIndex"`
	Hash       string      `json:"hash"`
	Timestamp  time.Time   `json:"timestamp"`
	Date       string      `json:"date"`
	Status     EventStatus `json:"status"`
	Nonce      int64       `json:"nonce"`
}

// EventHistory returns the EVENT blocks in chain order.
func (e *Entity) EventHistory() []EventEntry {
	out := []EventEntry{}
	for _, b := range e.chain.Blocks() {
		rec := b.Record()
		if rec.Type() != LeafEntityEvent {
			continue
		}
		out = append(out, EventEntry{
			BlockIndex: b.Index,
			Hash:       b.Hash,
			Timestamp:  b.Timestamp,
			Date:       rec.String(FieldDate),
			Status:     EventStatus(rec.Status()),
			Nonce:      b.Nonce,
		})
	}
	return out
}

// EventStats summarizes a leaf chain. Total counts every block after genesis.
type EventStats struct {
	EntityID    string              `json:"entityId"`
	DisplayName string              `json:"displayName"`
	ExternalKey string              `json:"externalKey"`
	Total       int                 `json:"total"`
	Counts      map[EventStatus]int `json:"counts"`
}

func (e *Entity) EventStats() EventStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	counts := newCounters()
	for s, n := range e.counters {
		counts[s] = n
	}
	return EventStats{
		EntityID:    e.chain.id,
		DisplayName: e.name,
		ExternalKey: e.externalKey,
		Total:       max(e.chain.Len()-1, 0),
		Counts:      counts,
	}
}

// LedgerEntry is one block of CompleteLedger.
type LedgerEntry struct {
	BlockIndex int64      `json:"blockIndex"`
	Timestamp  time.Time  `json:"timestamp"`
	Hash       string     `json:"hash"`
	PrevHash   string     `json:"prev_hash"`
	Nonce      int64      `json:"nonce"`
	Type       RecordType `json:"type"`
	Status     string     `json:"status"`
	Data       Record     `json:"data"`
}

// CompleteLedger dumps every block, genesis included.
func (e *Entity) CompleteLedger() []LedgerEntry {
	blocks := e.chain.Blocks()
	out := make([]LedgerEntry, 0, len(blocks))
	for _, b := range blocks {
		rec := b.Record()
		status := rec.Status()
		if status == "" {
			status = string(rec.Type())
		}
		out = append(out, LedgerEntry{
			BlockIndex: b.Index,
			Timestamp:  b.Timestamp,
			Hash:       b.Hash,
			PrevHash:   b.PrevHash,
			Nonce:      b.Nonce,
			Type:       rec.Type(),
			Status:     status,
			Data:       rec,
		})
	}
	return out
}
