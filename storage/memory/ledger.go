package memorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/PaulFidika/auditstore/entitlements"
	"github.com/google/uuid"
)

// Ledger is an in-memory entitlements.Ledger. The session index and the
// record list are updated under one lock, which makes PutIfAbsent atomic.
type Ledger struct {
	mu        sync.Mutex
	records   []entitlements.Record
	bySession map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{bySession: make(map[string]int)}
}

func (l *Ledger) Latest(ctx context.Context, userID, productID string) (entitlements.Record, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	var (
		best  entitlements.Record
		found bool
	)
	for _, r := range l.records {
		if r.UserID != userID || r.ProductID != productID {
			continue
		}
		// Later inserts win ties so that history replays in order.
		if !found || !r.AcquiredAt.Before(best.AcquiredAt) {
			best, found = r, true
		}
	}
	if !found {
		return entitlements.Record{}, entitlements.ErrNotFound
	}
	return best, nil
}

func (l *Ledger) BySession(ctx context.Context, sessionID string) (entitlements.Record, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.bySession[sessionID]
	if !ok {
		return entitlements.Record{}, entitlements.ErrNotFound
	}
	return l.records[i], nil
}

func (l *Ledger) PutIfAbsent(ctx context.Context, r entitlements.Record) (entitlements.Record, bool, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if i, ok := l.bySession[r.SourceSessionID]; ok {
		return l.records[i], false, nil
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	l.records = append(l.records, r)
	l.bySession[r.SourceSessionID] = len(l.records) - 1
	return r, true, nil
}

func (l *Ledger) ListByUser(ctx context.Context, userID string) ([]entitlements.Record, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []entitlements.Record
	for _, r := range l.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AcquiredAt.After(out[j].AcquiredAt) })
	return out, nil
}

// Len reports how many records have been persisted.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
