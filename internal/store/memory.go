package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"texforge/backend/internal/settings"
)

// MemoryLedger is an in-process TokenLedger for tests and local runs.
type MemoryLedger struct {
	mu    sync.Mutex
	usage map[string]TokenUsage
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{usage: make(map[string]TokenUsage)}
}

func (l *MemoryLedger) AddUsage(_ context.Context, uid, modelClass string, tokens int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := l.usage[uid]
	u.Total += tokens
	if modelClass == settings.ModelClassPro {
		u.Pro += tokens
	} else {
		u.Flash += tokens
	}
	l.usage[uid] = u
	return nil
}

func (l *MemoryLedger) Usage(_ context.Context, uid string) (TokenUsage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage[uid], nil
}

// MemoryArchive is an in-process ChatArchive for tests and local runs.
type MemoryArchive struct {
	mu      sync.Mutex
	records []ChatRecord
	now     func() time.Time
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{now: time.Now}
}

func (a *MemoryArchive) SaveChat(_ context.Context, uid, projectID string, messages []ChatMessage) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	record := ChatRecord{
		ID:        uuid.NewString(),
		UID:       uid,
		ProjectID: projectID,
		At:        a.now(),
		Messages:  messages,
	}
	a.records = append(a.records, record)
	return record.ID, nil
}

func (a *MemoryArchive) History(_ context.Context, uid, projectID string) ([]ChatRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []ChatRecord
	for _, record := range a.records {
		if record.UID != uid {
			continue
		}
		if projectID != "" && record.ProjectID != projectID {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}
