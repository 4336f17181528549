package discord

import (
	"context"
	"sync"

	"github.com/restockops/ordersweep/internal/models"
)

// MockGateway implements Gateway against an in-memory message list (for tests).
// Use discord.NewMockGateway in tests instead of NewClient to avoid real
// Discord connections. Deleting a message removes it from the backing list, so
// repeated sweeps observe the shortened history just like the real channel.
type MockGateway struct {
	mu        sync.Mutex
	messages  []models.CandidateMessage
	deleted   []string
	connState ConnState

	// FetchErr, when set, is returned by FetchRecentMessages.
	FetchErr error
	// DeleteErrs maps message IDs to errors injected on deletion attempts.
	DeleteErrs map[string]error
}

// NewMockGateway creates a ready mock gateway seeded with the given messages
// (newest first).
func NewMockGateway(messages ...models.CandidateMessage) *MockGateway {
	return &MockGateway{messages: messages, connState: StateReady}
}

// SetState overrides the reported connection state.
func (g *MockGateway) SetState(s ConnState) {
	g.mu.Lock()
	g.connState = s
	g.mu.Unlock()
}

// State reports the mock connection state.
func (g *MockGateway) State() ConnState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connState
}

// FetchRecentMessages returns up to limit of the remaining messages.
func (g *MockGateway) FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.CandidateMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.FetchErr != nil {
		return nil, g.FetchErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n := limit
	if n > len(g.messages) {
		n = len(g.messages)
	}
	out := make([]models.CandidateMessage, n)
	copy(out, g.messages[:n])
	return out, nil
}

// DeleteMessage removes the message from the backing list. Deleting an ID that
// is already gone reports models.ErrMessageGone like the real platform.
func (g *MockGateway) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := g.DeleteErrs[messageID]; ok {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, m := range g.messages {
		if m.ID == messageID {
			g.messages = append(g.messages[:i], g.messages[i+1:]...)
			g.deleted = append(g.deleted, messageID)
			return nil
		}
	}
	return models.ErrMessageGone
}

// DeletedIDs returns the IDs deleted so far, in deletion order.
func (g *MockGateway) DeletedIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.deleted))
	copy(out, g.deleted)
	return out
}

// Remaining returns how many messages are still in the channel.
func (g *MockGateway) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.messages)
}
