// Package discord wraps the discordgo client for modular use in ordersweep.
//
// It owns the single long-lived gateway session, tracks its connection state
// for health reporting, and exposes the narrow message-history capability the
// sweep workflow needs.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/restockops/ordersweep/internal/models"
)

// historyPageSize is the maximum number of messages the platform returns per
// history request; larger scan limits are paginated.
const historyPageSize = 100

// ConnState describes the lifecycle state of the gateway session.
type ConnState string

const (
	// StateConnecting means the session is establishing its first handshake.
	StateConnecting ConnState = "connecting"
	// StateReady means the session is connected and may serve operations.
	StateReady ConnState = "ready"
	// StateDegraded means the session lost its connection and is recovering;
	// operations fail fast instead of blocking.
	StateDegraded ConnState = "degraded"
	// StateClosed means the session was shut down explicitly.
	StateClosed ConnState = "closed"
)

// Gateway is the capability contract the sweep workflow depends on, so the
// core logic can be tested against a fake without a network connection.
type Gateway interface {
	// FetchRecentMessages returns up to limit of the channel's most recent
	// messages, newest first.
	FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.CandidateMessage, error)

	// DeleteMessage removes a single message from a channel.
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// State reports the current connection state.
	State() ConnState
}

// Opts holds configuration options for the Discord client.
type Opts struct {
	Token        string
	CommandGuild string // guild scope for slash command registration; empty registers globally
	NoCommands   bool   // skip slash command registration entirely
}

// Option defines a configuration option for the Discord client.
type Option func(*Opts)

// WithToken sets the bot credential used to authenticate the session.
func WithToken(token string) Option {
	return func(o *Opts) {
		o.Token = token
	}
}

// WithCommandGuild restricts slash command registration to a single guild.
// Guild-scoped commands propagate immediately, which is useful in development.
func WithCommandGuild(guildID string) Option {
	return func(o *Opts) {
		o.CommandGuild = guildID
	}
}

// WithoutCommands disables slash command registration.
func WithoutCommands() Option {
	return func(o *Opts) {
		o.NoCommands = true
	}
}

// Client wraps the discordgo session for modular use.
type Client struct {
	session *discordgo.Session
	opts    Opts

	mu    sync.RWMutex
	state ConnState

	registerOnce sync.Once
	commands     []*discordgo.ApplicationCommand
}

// NewClient creates the Discord client and opens the gateway session.
// The returned client starts in the connecting state and becomes ready once
// the platform acknowledges the handshake.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		slog.Error("Failed to create Discord session", "error", err)
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	c := &Client{session: session, opts: cfg, state: StateConnecting}

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Discord gateway ready", "user", r.User.String(), "guilds", len(r.Guilds))
		c.setState(StateReady)
		if !cfg.NoCommands {
			c.registerOnce.Do(c.registerCommands)
		}
	})
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Resumed) {
		slog.Info("Discord gateway resumed")
		c.setState(StateReady)
	})
	session.AddHandler(func(s *discordgo.Session, d *discordgo.Disconnect) {
		c.mu.Lock()
		if c.state != StateClosed {
			c.state = StateDegraded
		}
		c.mu.Unlock()
		slog.Warn("Discord gateway disconnected, awaiting reconnect")
	})
	session.AddHandler(c.handleInteraction)

	slog.Debug("Opening Discord gateway session")
	if err := session.Open(); err != nil {
		slog.Error("Failed to open Discord gateway session", "error", err)
		return nil, fmt.Errorf("failed to open Discord gateway session: %w", err)
	}
	slog.Info("Discord gateway session opened")
	return c, nil
}

// State reports the current connection state.
func (c *Client) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// checkReady enforces the fail-fast contract: operations are only valid in the
// ready state.
func (c *Client) checkReady() error {
	if s := c.State(); s != StateReady {
		return fmt.Errorf("gateway session is %s: %w", s, models.ErrPlatformUnavailable)
	}
	return nil
}

// FetchRecentMessages retrieves up to limit of the channel's most recent
// messages, newest first, paginating the history endpoint as needed. Each
// message is wrapped into an immutable snapshot at the boundary.
func (c *Client) FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.CandidateMessage, error) {
	if err := c.checkReady(); err != nil {
		return nil, err
	}

	out := make([]models.CandidateMessage, 0, limit)
	before := ""
	for len(out) < limit {
		chunk := limit - len(out)
		if chunk > historyPageSize {
			chunk = historyPageSize
		}
		msgs, err := c.session.ChannelMessages(channelID, chunk, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			slog.Error("Failed to fetch channel history", "error", err, "channel_id", channelID)
			return nil, translateError(err)
		}
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			out = append(out, wrapMessage(m))
		}
		before = msgs[len(msgs)-1].ID
		if len(msgs) < chunk {
			break
		}
	}
	slog.Debug("Fetched channel history", "channel_id", channelID, "count", len(out), "limit", limit)
	return out, nil
}

// DeleteMessage removes a single message from a channel.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := c.checkReady(); err != nil {
		return err
	}
	if err := c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		slog.Warn("Failed to delete message", "error", err, "channel_id", channelID, "message_id", messageID)
		return translateError(err)
	}
	slog.Debug("Deleted message", "channel_id", channelID, "message_id", messageID)
	return nil
}

// Close deregisters slash commands and shuts down the gateway session.
func (c *Client) Close() error {
	c.setState(StateClosed)
	c.deregisterCommands()
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	slog.Info("Discord gateway session closed")
	return nil
}

// wrapMessage converts a platform message into the immutable snapshot used by
// the sweep workflow. Embed text is flattened so criteria posted inside
// webhook embeds remain matchable.
func wrapMessage(m *discordgo.Message) models.CandidateMessage {
	var author string
	var bot bool
	if m.Author != nil {
		author = m.Author.String()
		bot = m.Author.Bot
	}
	var embeds []string
	for _, e := range m.Embeds {
		var parts []string
		if e.Title != "" {
			parts = append(parts, e.Title)
		}
		if e.Description != "" {
			parts = append(parts, e.Description)
		}
		for _, f := range e.Fields {
			parts = append(parts, f.Name, f.Value)
		}
		if len(parts) > 0 {
			embeds = append(embeds, strings.Join(parts, "\n"))
		}
	}
	return models.CandidateMessage{
		ID:        m.ID,
		Content:   m.Content,
		Author:    author,
		Webhook:   m.WebhookID != "" || bot,
		Timestamp: m.Timestamp,
		Embeds:    embeds,
	}
}

// translateError converts platform errors into the sentinel taxonomy so
// callers never depend on discordgo error types.
func translateError(err error) error {
	// Context expiry belongs to the caller's time budget, not the platform.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		switch rerr.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%s: %w", rerr.Message.Message, models.ErrChannelAccess)
		case discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%s: %w", rerr.Message.Message, models.ErrPermission)
		case discordgo.ErrCodeUnknownMessage:
			return fmt.Errorf("%s: %w", rerr.Message.Message, models.ErrMessageGone)
		}
		return fmt.Errorf("discord api error %d: %s: %w", rerr.Message.Code, rerr.Message.Message, models.ErrPlatformUnavailable)
	}
	var lerr *discordgo.RateLimitError
	if errors.As(err, &lerr) {
		return fmt.Errorf("rate limited for %s: %w", lerr.RetryAfter, models.ErrPlatformUnavailable)
	}
	return fmt.Errorf("%v: %w", err, models.ErrPlatformUnavailable)
}
