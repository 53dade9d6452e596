package shipsync

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditCapacity bounds the webhook audit log; the oldest entry is
// evicted on overflow.
const AuditCapacity = 50

// AuditOutcome classifies how an inbound event was handled.
type AuditOutcome string

const (
	AuditSuccess AuditOutcome = "success"
	AuditError   AuditOutcome = "error"
)

// AuditEntry is one diagnostic record of an inbound webhook delivery.
type AuditEntry struct {
	ID              string       `json:"id"`
	Timestamp       time.Time    `json:"timestamp"`
	EventType       string       `json:"eventType"`
	SignaturePrefix string       `json:"signaturePrefix"`
	Outcome         AuditOutcome `json:"outcome"`
	Message         string       `json:"message"`
	RawEvent        []byte       `json:"rawEvent,omitempty"`
}

// AuditLog is a bounded, append-only log of the most recent inbound
// webhook events. Purely for operability; never consulted for
// correctness decisions.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewAuditLog creates an empty audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{entries: make([]AuditEntry, 0, AuditCapacity)}
}

// Record prepends the entry, evicting the oldest beyond AuditCapacity.
// Missing id and timestamp are filled in.
func (l *AuditLog) Record(entry AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]AuditEntry{entry}, l.entries...)
	if len(l.entries) > AuditCapacity {
		l.entries = l.entries[:AuditCapacity]
	}
}

// List returns the entries, most recent first.
func (l *AuditLog) List() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *AuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// signaturePrefix truncates a signature for audit display.
func signaturePrefix(sig string) string {
	const n = 12
	if len(sig) <= n {
		return sig
	}
	return sig[:n]
}
