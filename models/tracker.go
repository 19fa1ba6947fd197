package models

import "time"

// EntryState is the lifecycle state of a reaction entry. The only transition
// is active -> invalidated; a later re-add appends a brand-new entry rather
// than resurrecting an invalidated one.
type EntryState string

const (
	EntryStateActive      EntryState = "active"
	EntryStateInvalidated EntryState = "invalidated"
)

// Entry is a single timestamped reaction record. Entries are never deleted,
// only invalidated, so the full reaction history of an item is auditable.
type Entry struct {
	UserID    string     `json:"user_id"`
	Reaction  Reaction   `json:"reaction"`
	Timestamp time.Time  `json:"timestamp"`
	State     EntryState `json:"state"`
}

func (e Entry) IsActive() bool {
	return e.State == EntryStateActive
}

// UserRef identifies the user who created a tracked item. GuildID is kept so
// the user can be re-resolved from a snapshot.
type UserRef struct {
	ID          string `json:"id"`
	GuildID     string `json:"guild_id"`
	DisplayName string `json:"display_name"`
}

// MessageRef locates the externally-managed Discord message a tracked item is
// bound to. The core treats it as an opaque handle.
type MessageRef struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// TrackedItem binds one external message to its reaction history, expiry and
// owning feature module.
//
// MessageID is always set and is the store key. Message may be nil after a
// snapshot restore when the original message could no longer be located;
// render callbacks must tolerate that.
type TrackedItem struct {
	ID          string      `json:"id"`
	Owner       UserRef     `json:"owner"`
	Payload     string      `json:"payload"`
	Message     *MessageRef `json:"message,omitempty"`
	MessageID   string      `json:"message_id"`
	Entries     []Entry     `json:"entries"`
	ExpiresAt   time.Time   `json:"expires_at"`
	ModuleData  any         `json:"-"`
	OwnerModule string      `json:"owner_module"`
}

// Clone returns a deep copy of the item. Entries are copied so callers can
// never mutate the store's own slice; ModuleData is opaque to the core and is
// carried over as-is.
func (t *TrackedItem) Clone() *TrackedItem {
	if t == nil {
		return nil
	}

	clone := *t
	clone.Entries = make([]Entry, len(t.Entries))
	copy(clone.Entries, t.Entries)

	if t.Message != nil {
		msg := *t.Message
		clone.Message = &msg
	}

	return &clone
}

// ActiveEntries returns the entries that are still active, in insertion order.
func (t *TrackedItem) ActiveEntries() []Entry {
	var active []Entry
	for _, e := range t.Entries {
		if e.IsActive() {
			active = append(active, e)
		}
	}
	return active
}

// FindActiveEntry returns the index of the active entry for (userID, reaction)
// or -1 when there is none. At most one such entry can exist at a time.
func (t *TrackedItem) FindActiveEntry(userID string, reaction Reaction) int {
	for i, e := range t.Entries {
		if e.UserID == userID && e.IsActive() && e.Reaction.Equal(reaction) {
			return i
		}
	}
	return -1
}

func (t *TrackedItem) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
