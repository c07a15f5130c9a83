// Package session keeps per-conversation chat history.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/xhad/trafficlaw/internal/models"
)

var ErrInvalidSessionID = errors.New("invalid session id")

// Store holds the messages exchanged in each chat session.
type Store interface {
	// History returns the last maxTurns human/ai exchanges of a session,
	// oldest first. maxTurns <= 0 returns nothing.
	History(ctx context.Context, id string, maxTurns int) ([]models.Message, error)
	Append(ctx context.Context, id string, msgs ...models.Message) error
	Clear(ctx context.Context, id string) error
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidSessionID
	}
	return nil
}

// lastTurns keeps the trailing maxTurns*2 messages.
func lastTurns(msgs []models.Message, maxTurns int) []models.Message {
	if maxTurns <= 0 {
		return nil
	}
	if n := maxTurns * 2; len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}
