package clients

import (
	"context"

	"reacttracker/models"
)

// Resolver re-resolves snapshot record references against the message
// platform during a cold-start restore. Implementations return
// core.ErrNotFound-wrapping errors when the platform no longer knows the
// reference; the snapshot decoder degrades to best-effort fields in that case
// instead of dropping the record.
type Resolver interface {
	// ResolveUser looks up a user within a guild, falling back to a plain
	// user lookup when guild membership is gone.
	ResolveUser(ctx context.Context, guildID, userID string) (*models.UserRef, error)

	// ResolveMessage locates a message by ID across the channels visible to
	// the bot.
	ResolveMessage(ctx context.Context, messageID string) (*models.MessageRef, error)

	// ResolveEmoji returns the display name of a custom emoji by its ID.
	ResolveEmoji(ctx context.Context, guildID, emojiID string) (string, error)
}
