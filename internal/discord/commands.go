package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Static slash commands replying with the carrier return links for each
// warehouse. They carry no state and are not part of the deletion workflow.
var (
	returnLinkCommands = []*discordgo.ApplicationCommand{
		{Name: "bcn", Description: "Get Barcelona return link"},
		{Name: "madrid", Description: "Get Madrid return link"},
	}

	returnLinkReplies = map[string]string{
		"bcn":    "Barcelona return link: https://www.seur.com/devoluciones/pages/devolucionInicio.do?id=6b98e763-d1a2-431d-a876-912cfc8cd00b",
		"madrid": "Madrid return link: https://www.seur.com/devoluciones/pages/devolucionInicio.do?id=78822075-b327-4dd1-920d-7865acbf4365",
	}
)

// registerCommands registers the static slash commands once the session is
// ready. Registration failures are logged but never fatal; the deletion
// workflow does not depend on them.
func (c *Client) registerCommands() {
	appID := c.session.State.User.ID
	for _, cmd := range returnLinkCommands {
		created, err := c.session.ApplicationCommandCreate(appID, c.opts.CommandGuild, cmd)
		if err != nil {
			slog.Error("Failed to register slash command", "error", err, "command", cmd.Name)
			continue
		}
		c.mu.Lock()
		c.commands = append(c.commands, created)
		c.mu.Unlock()
		slog.Info("Registered slash command", "command", created.Name, "guild", c.opts.CommandGuild)
	}
}

// deregisterCommands removes the commands registered by this session.
// Best effort: the session may already be gone during shutdown.
func (c *Client) deregisterCommands() {
	if c.session.State == nil || c.session.State.User == nil {
		return
	}
	appID := c.session.State.User.ID
	c.mu.Lock()
	commands := c.commands
	c.commands = nil
	c.mu.Unlock()
	for _, cmd := range commands {
		if err := c.session.ApplicationCommandDelete(appID, c.opts.CommandGuild, cmd.ID); err != nil {
			slog.Warn("Failed to deregister slash command", "error", err, "command", cmd.Name)
		}
	}
}

// handleInteraction answers the static return-link commands.
func (c *Client) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	reply, ok := returnLinkReplies[name]
	if !ok {
		return
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: reply},
	})
	if err != nil {
		slog.Error("Failed to respond to slash command", "error", err, "command", name)
		return
	}
	slog.Info("Slash command answered", "command", name)
}
