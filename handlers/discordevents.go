package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	discordclient "reacttracker/clients/discord"
	"reacttracker/services/trackers"
)

// DiscordEventsHandler bridges the Discord gateway to the tracker store. It
// subscribes to raw reaction add/remove notifications and forwards them as
// ingestion calls; the store decides whether the message is tracked.
type DiscordEventsHandler struct {
	discordSDKClient *discordgo.Session
	trackersService  *trackers.TrackersService
}

func NewDiscordEventsHandler(
	botToken string,
	trackersService *trackers.TrackersService,
) (*DiscordEventsHandler, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	handler := &DiscordEventsHandler{
		discordSDKClient: session,
		trackersService:  trackersService,
	}

	// Register event handlers
	session.AddHandler(handler.handleReactionAddedEvent)
	session.AddHandler(handler.handleReactionRemovedEvent)

	// Reaction events only; the tracker never reads message content
	session.Identify.Intents = discordgo.IntentsGuildMessageReactions

	return handler, nil
}

// Session exposes the underlying discordgo session so the host can build
// collaborators (snapshot resolver) on the same connection.
func (h *DiscordEventsHandler) Session() *discordgo.Session {
	return h.discordSDKClient
}

// StartBot opens the Discord connection and starts listening for events
func (h *DiscordEventsHandler) StartBot() error {
	if err := h.discordSDKClient.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	log.Printf("🤖 Discord bot is now running and listening for reaction events")
	return nil
}

// StopBot gracefully closes the Discord connection
func (h *DiscordEventsHandler) StopBot() {
	h.discordSDKClient.Close()
}

func (h *DiscordEventsHandler) handleReactionAddedEvent(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if h.isOwnReaction(s, r.UserID) {
		return
	}

	log.Printf("📨 Discord reaction added: %s by user %s on message %s in guild %s",
		r.Emoji.Name, r.UserID, r.MessageID, r.GuildID)

	reaction := discordclient.ReactionFromEmoji(&r.Emoji)
	if err := h.trackersService.IngestReactionAdded(context.Background(), r.MessageID, r.UserID, reaction); err != nil {
		log.Printf("❌ Failed to ingest reaction added on message %s: %v", r.MessageID, err)
	}
}

func (h *DiscordEventsHandler) handleReactionRemovedEvent(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if h.isOwnReaction(s, r.UserID) {
		return
	}

	log.Printf("📨 Discord reaction removed: %s by user %s on message %s in guild %s",
		r.Emoji.Name, r.UserID, r.MessageID, r.GuildID)

	reaction := discordclient.ReactionFromEmoji(&r.Emoji)
	if err := h.trackersService.IngestReactionRemoved(context.Background(), r.MessageID, r.UserID, reaction); err != nil {
		log.Printf("❌ Failed to ingest reaction removed on message %s: %v", r.MessageID, err)
	}
}

// isOwnReaction filters out the bot's own seed reactions; feature modules add
// those to their messages so users can find the right emoji.
func (h *DiscordEventsHandler) isOwnReaction(s *discordgo.Session, userID string) bool {
	return s.State != nil && s.State.User != nil && s.State.User.ID == userID
}
