package models

import "fmt"

// ReactionKind discriminates between the two shapes a Discord reaction can
// take: a plain unicode symbol, or a guild-hosted custom emoji.
type ReactionKind string

const (
	ReactionKindUnicode ReactionKind = "unicode"
	ReactionKindCustom  ReactionKind = "emoji"
)

// Reaction identifies a single reaction. Unicode reactions carry the literal
// symbol in Name and have no EmojiID. Custom reactions carry the platform
// emoji ID (a snowflake) in EmojiID plus a display name; identity is the ID,
// the name is cosmetic and may be empty after a snapshot restore.
type Reaction struct {
	Kind    ReactionKind `json:"kind"`
	Name    string       `json:"name"`
	EmojiID string       `json:"emoji_id,omitempty"`
}

func UnicodeReaction(symbol string) Reaction {
	return Reaction{Kind: ReactionKindUnicode, Name: symbol}
}

func CustomReaction(emojiID, name string) Reaction {
	return Reaction{Kind: ReactionKindCustom, Name: name, EmojiID: emojiID}
}

// Equal reports whether two reactions identify the same emoji. Each kind has
// its own equality rule and reactions of different kinds are never equal.
func (r Reaction) Equal(other Reaction) bool {
	if r.Kind != other.Kind {
		return false
	}
	switch r.Kind {
	case ReactionKindUnicode:
		return r.Name == other.Name
	case ReactionKindCustom:
		return r.EmojiID == other.EmojiID
	default:
		return false
	}
}

func (r Reaction) Validate() error {
	switch r.Kind {
	case ReactionKindUnicode:
		if r.Name == "" {
			return fmt.Errorf("unicode reaction must have a symbol")
		}
	case ReactionKindCustom:
		if r.EmojiID == "" {
			return fmt.Errorf("custom reaction must have an emoji ID")
		}
	default:
		return fmt.Errorf("unknown reaction kind: %q", r.Kind)
	}
	return nil
}

func (r Reaction) String() string {
	if r.Kind == ReactionKindCustom {
		return fmt.Sprintf("<:%s:%s>", r.Name, r.EmojiID)
	}
	return r.Name
}
