package audit

import (
	"sync"
	"time"

	"giveledger.org/internal/ids"
	"giveledger.org/internal/obs"
)

// Outcome of an attempted mutation.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
)

// Entry records one attempted mutation, successful or not. The sequence is
// the global total order of the ledger; it has no gaps and never rewinds.
type Entry struct {
	ID          string            `json:"id"`
	Sequence    uint64            `json:"sequence"`
	OccurredAt  time.Time         `json:"occurred_at"`
	LogicalTime int64             `json:"logical_time"`
	Operation   string            `json:"operation"`
	Caller      string            `json:"caller"`
	Args        map[string]string `json:"args"`
	Outcome     string            `json:"outcome"`
	ErrorKind   string            `json:"error_kind,omitempty"`
}

// Log is the append-only audit trail. Appends happen under the ledger
// core's serialization lock, so sequences follow commit order exactly.
type Log struct {
	mu      sync.RWMutex
	seq     uint64
	entries []Entry
}

// NewLog creates an empty audit log.
func NewLog() *Log {
	return &Log{}
}

// Append assigns the next sequence number, stores the entry and emits it as
// a structured JSON line. The stored entry is returned.
func (l *Log) Append(entry Entry) Entry {
	l.mu.Lock()
	l.seq++
	entry.Sequence = l.seq
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if entry.Args == nil {
		entry.Args = map[string]string{}
	}
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	obs.LogRequest(map[string]any{
		"ts":           entry.OccurredAt.Format(time.RFC3339Nano),
		"type":         "audit",
		"sequence":     entry.Sequence,
		"operation":    entry.Operation,
		"caller":       entry.Caller,
		"outcome":      entry.Outcome,
		"error_kind":   entry.ErrorKind,
		"logical_time": entry.LogicalTime,
		"args":         entry.Args,
	})
	return entry
}

// List returns up to limit entries with sequence greater than afterSeq,
// along with the last sequence returned.
func (l *Log) List(limit int, afterSeq uint64) ([]Entry, uint64) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	var res []Entry
	var last uint64
	for _, e := range l.entries {
		if e.Sequence <= afterSeq {
			continue
		}
		res = append(res, e)
		last = e.Sequence
		if len(res) >= limit {
			break
		}
	}
	return res, last
}

// Len returns the number of entries appended so far.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
