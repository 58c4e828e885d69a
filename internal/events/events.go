// Package events is the append-only audit log. Entries are keyed by the actor
// that caused them and the subject they concern.
package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry types written by the gateway layer.
const (
	TypePaymentAuthorized = "payment_authorized"
	TypePaymentCaptured   = "payment_captured"
	TypePaymentConfirmed  = "payment_confirmed"
	TypePaymentRefunded   = "payment_refunded"
	TypePaymentVoided     = "payment_voided"
	TypePaymentProcessed  = "payment_processed"
	TypeInvoiceSent       = "invoice_sent"
)

// Entry is one audit record.
type Entry struct {
	ID        string            `json:"id" dynamodbav:"id"`
	Type      string            `json:"type" dynamodbav:"type"`
	Actor     string            `json:"actor" dynamodbav:"actor"`
	Subject   string            `json:"subject" dynamodbav:"subject"`
	Payload   map[string]string `json:"payload,omitempty" dynamodbav:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at" dynamodbav:"created_at"`
}

// Log appends and lists audit entries.
type Log interface {
	// Append stores e, filling ID and CreatedAt when empty, and returns the stored entry.
	Append(ctx context.Context, e Entry) (Entry, error)
	// List returns every entry, oldest first.
	List(ctx context.Context) ([]Entry, error)
}

func prepare(e Entry, now func() time.Time) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now().UTC()
	}
	return e
}

func sortByTime(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

// MemoryLog keeps entries in process memory.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// NewMemoryLog creates an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{now: time.Now}
}

// Append implements Log.
func (l *MemoryLog) Append(_ context.Context, e Entry) (Entry, error) {
	e = prepare(e, l.now)
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return e, nil
}

// List implements Log.
func (l *MemoryLog) List(_ context.Context) ([]Entry, error) {
	l.mu.RLock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	l.mu.RUnlock()
	sortByTime(out)
	return out, nil
}
