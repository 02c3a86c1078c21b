// Package store declares the persistence boundaries of the backend. The
// real implementations (user directory, document database) live outside
// this process; the core only ever talks to these interfaces.
package store

import (
	"context"
	"time"
)

// TokenUsage is a user's accumulated spend, split by model class.
type TokenUsage struct {
	Total int `json:"total"`
	Flash int `json:"flash"`
	Pro   int `json:"pro"`
}

// TokenLedger records per-user inference spend. Callers feed it the
// token_usage of every AI operation.
type TokenLedger interface {
	AddUsage(ctx context.Context, uid, modelClass string, tokens int) error
	Usage(ctx context.Context, uid string) (TokenUsage, error)
}

// ChatMessage is one message in a saved conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Tokens  int    `json:"tokens"`
}

// ChatRecord is a persisted conversation fragment.
type ChatRecord struct {
	ID        string        `json:"id"`
	UID       string        `json:"uid"`
	ProjectID string        `json:"project_id"`
	At        time.Time     `json:"datetime"`
	Messages  []ChatMessage `json:"messages"`
}

// ChatArchive persists chat history per user and project.
type ChatArchive interface {
	SaveChat(ctx context.Context, uid, projectID string, messages []ChatMessage) (string, error)
	History(ctx context.Context, uid, projectID string) ([]ChatRecord, error)
}
