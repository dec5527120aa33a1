package model

import "context"

// Awaiting is what a user session is waiting for.
type Awaiting string

const AwaitingDateInput Awaiting = "date_input"

// Session is the per-user state kept between two inbound events.
// A user with nothing pending has no session at all.
type Session struct {
	Awaiting Awaiting `json:"awaiting"`
}

// SessionStore maps a user identity to its Session.
// Concurrent writes for the same user are last-writer-wins.
type SessionStore interface {
	// Get returns the session and whether one exists.
	Get(ctx context.Context, userID string) (Session, bool, error)

	// Set creates or replaces the session.
	Set(ctx context.Context, userID string, s Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID string) error
}

// ReplySink delivers text back to a user on the messaging platform.
type ReplySink interface {
	// Reply answers the inbound event that issued token.
	Reply(ctx context.Context, replyToken, text string) error

	// Push sends to the user without a reply token.
	Push(ctx context.Context, userID, text string) error

	// PromptDate answers with an interactive date picker.
	PromptDate(ctx context.Context, replyToken, text string) error
}
