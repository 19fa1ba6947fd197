package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"reacttracker/clients"
	"reacttracker/core"
	"reacttracker/models"
)

// DiscordResolver implements the clients.Resolver interface on top of a live
// discordgo session.
type DiscordResolver struct {
	session *discordgo.Session
}

func NewDiscordResolver(session *discordgo.Session) clients.Resolver {
	return &DiscordResolver{session: session}
}

// ResolveUser looks the user up as a guild member first so the display name
// reflects any guild nickname, falling back to a plain user lookup when the
// member is gone.
func (r *DiscordResolver) ResolveUser(ctx context.Context, guildID, userID string) (*models.UserRef, error) {
	if member, err := r.session.GuildMember(guildID, userID, discordgo.WithContext(ctx)); err == nil {
		return &models.UserRef{
			ID:          userID,
			GuildID:     guildID,
			DisplayName: member.DisplayName(),
		}, nil
	}

	user, err := r.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", userID, core.ErrNotFound)
	}

	return &models.UserRef{
		ID:          userID,
		GuildID:     guildID,
		DisplayName: user.Username,
	}, nil
}

// ResolveMessage searches every text channel the bot can see for the message.
// Discord has no message-by-ID lookup, so this walks guild channels until one
// of them knows the message.
func (r *DiscordResolver) ResolveMessage(ctx context.Context, messageID string) (*models.MessageRef, error) {
	for _, guild := range r.session.State.Guilds {
		channels, err := r.session.GuildChannels(guild.ID, discordgo.WithContext(ctx))
		if err != nil {
			continue
		}

		for _, channel := range channels {
			if channel.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			if _, err := r.session.ChannelMessage(channel.ID, messageID, discordgo.WithContext(ctx)); err != nil {
				continue
			}
			return &models.MessageRef{
				GuildID:   guild.ID,
				ChannelID: channel.ID,
				MessageID: messageID,
			}, nil
		}
	}

	return nil, fmt.Errorf("failed to resolve message %s: %w", messageID, core.ErrNotFound)
}

// ResolveEmoji returns the current display name of a guild custom emoji.
func (r *DiscordResolver) ResolveEmoji(ctx context.Context, guildID, emojiID string) (string, error) {
	emoji, err := r.session.GuildEmoji(guildID, emojiID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to resolve emoji %s: %w", emojiID, core.ErrNotFound)
	}
	return emoji.Name, nil
}

// ReactionFromEmoji maps a discordgo emoji to the tracker's reaction type.
// Discord marks unicode reactions by sending an empty emoji ID.
func ReactionFromEmoji(emoji *discordgo.Emoji) models.Reaction {
	if emoji.ID == "" {
		return models.UnicodeReaction(emoji.Name)
	}
	return models.CustomReaction(emoji.ID, emoji.Name)
}
