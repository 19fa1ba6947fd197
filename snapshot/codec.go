package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"reacttracker/clients"
	"reacttracker/core"
	"reacttracker/models"
)

// Wire format of one persisted entry. Field names are the snapshot contract
// and must not change: existing snapshot files depend on them.
type entryRecord struct {
	User      string  `json:"user"`
	ReactType string  `json:"reactType"`
	React     string  `json:"react"`
	TimeStamp float64 `json:"timeStamp"`
	Valid     bool    `json:"valid"`
}

// Wire format of one persisted tracked item. ModuleData is deliberately
// absent: it is module-private derived state and is rebuilt through the
// post-process callback after a restore.
type trackerRecord struct {
	Owner      string        `json:"owner"`
	OwnerGuild string        `json:"ownerGuild"`
	Msg        string        `json:"msg"`
	MsgID      string        `json:"msgId"`
	Entries    []entryRecord `json:"entries"`
	Expire     float64       `json:"expire"`
	CogOwner   string        `json:"cogOwner"`
}

// Encode serializes the full set of tracked items into a snapshot keyed by
// message ID. Timestamps are stored as epoch seconds.
func Encode(items []*models.TrackedItem) ([]byte, error) {
	records := make(map[string]trackerRecord, len(items))

	for _, item := range items {
		if item == nil || item.MessageID == "" {
			continue
		}

		entries := make([]entryRecord, 0, len(item.Entries))
		for _, e := range item.Entries {
			entries = append(entries, encodeEntry(e))
		}

		records[item.MessageID] = trackerRecord{
			Owner:      item.Owner.ID,
			OwnerGuild: item.Owner.GuildID,
			Msg:        item.Payload,
			MsgID:      item.MessageID,
			Entries:    entries,
			Expire:     float64(item.ExpiresAt.Unix()),
			CogOwner:   item.OwnerModule,
		}
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func encodeEntry(e models.Entry) entryRecord {
	record := entryRecord{
		User:      e.UserID,
		TimeStamp: float64(e.Timestamp.Unix()),
		Valid:     e.IsActive(),
	}

	switch e.Reaction.Kind {
	case models.ReactionKindCustom:
		record.ReactType = "emoji"
		record.React = e.Reaction.EmojiID
	default:
		record.ReactType = "unicode"
		record.React = e.Reaction.Name
	}
	return record
}

// Decode reconstructs tracked items from a snapshot. Corrupt records are
// skipped with a log line and never abort the overall load. Resolver failures
// degrade a record to best-effort fields: an unresolvable owner keeps its raw
// IDs, an unresolvable message leaves the item with a nil message reference.
func Decode(ctx context.Context, data []byte, resolver clients.Resolver) ([]*models.TrackedItem, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	items := make([]*models.TrackedItem, 0, len(raw))
	for key, rawRecord := range raw {
		var record trackerRecord
		if err := json.Unmarshal(rawRecord, &record); err != nil {
			log.Printf("⚠️ Skipping corrupt snapshot record for message %s: %v", key, err)
			continue
		}

		messageID := record.MsgID
		if messageID == "" {
			messageID = key
		}
		if messageID == "" || record.Owner == "" {
			log.Printf("⚠️ Skipping snapshot record with missing identifiers (key: %q)", key)
			continue
		}

		items = append(items, decodeRecord(ctx, messageID, record, resolver))
	}

	return items, nil
}

func decodeRecord(
	ctx context.Context,
	messageID string,
	record trackerRecord,
	resolver clients.Resolver,
) *models.TrackedItem {
	owner := models.UserRef{ID: record.Owner, GuildID: record.OwnerGuild}
	if resolved, err := resolver.ResolveUser(ctx, record.OwnerGuild, record.Owner); err != nil {
		log.Printf("⚠️ Could not re-resolve owner %s in guild %s: %v - keeping raw IDs",
			record.Owner, record.OwnerGuild, err)
	} else {
		owner = *resolved
	}

	// A message that can no longer be located is restored with a nil
	// reference rather than dropped; render callbacks tolerate that.
	var message *models.MessageRef
	if resolved, err := resolver.ResolveMessage(ctx, messageID); err != nil {
		log.Printf("⚠️ Could not re-resolve message %s: %v - restoring without message reference",
			messageID, err)
	} else {
		message = resolved
	}

	entries := make([]models.Entry, 0, len(record.Entries))
	for i, e := range record.Entries {
		entry, err := decodeEntry(ctx, record.OwnerGuild, e, resolver)
		if err != nil {
			log.Printf("⚠️ Skipping corrupt entry %d on message %s: %v", i, messageID, err)
			continue
		}
		entries = append(entries, entry)
	}

	return &models.TrackedItem{
		ID:          core.NewID("ti"),
		Owner:       owner,
		Payload:     record.Msg,
		Message:     message,
		MessageID:   messageID,
		Entries:     entries,
		ExpiresAt:   time.Unix(int64(record.Expire), 0).UTC(),
		OwnerModule: record.CogOwner,
	}
}

func decodeEntry(
	ctx context.Context,
	guildID string,
	record entryRecord,
	resolver clients.Resolver,
) (models.Entry, error) {
	if record.User == "" {
		return models.Entry{}, fmt.Errorf("entry has no user")
	}

	var reaction models.Reaction
	switch record.ReactType {
	case "unicode":
		reaction = models.UnicodeReaction(record.React)
	case "emoji":
		name, err := resolver.ResolveEmoji(ctx, guildID, record.React)
		if err != nil {
			// Identity is the emoji ID; the display name is cosmetic
			log.Printf("⚠️ Could not resolve custom emoji %s: %v", record.React, err)
		}
		reaction = models.CustomReaction(record.React, name)
	default:
		return models.Entry{}, fmt.Errorf("unknown reactType %q", record.ReactType)
	}

	if err := reaction.Validate(); err != nil {
		return models.Entry{}, err
	}

	state := models.EntryStateInvalidated
	if record.Valid {
		state = models.EntryStateActive
	}

	return models.Entry{
		UserID:    record.User,
		Reaction:  reaction,
		Timestamp: time.Unix(int64(record.TimeStamp), 0).UTC(),
		State:     state,
	}, nil
}
