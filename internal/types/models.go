// internal/types/models.go
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates the event variants.
type Kind string

const (
	KindDrop        Kind = "drop"
	KindAchievement Kind = "achievement_unlock"
)

// Rarity is the tier of a dropped item.
type Rarity string

const (
	RarityInsane    Rarity = "insane"
	RarityMythic    Rarity = "mythic"
	RarityLegendary Rarity = "legendary"
	RarityRare      Rarity = "rare"
	RarityEvent     Rarity = "event"
	RarityCommon    Rarity = "common"
)

// Rank orders rarities, lower is rarer. Unknown tiers sort last.
func (r Rarity) Rank() int {
	switch r {
	case RarityInsane:
		return 0
	case RarityMythic:
		return 1
	case RarityLegendary:
		return 2
	case RarityRare:
		return 3
	case RarityEvent:
		return 4
	default:
		return 99
	}
}

// IsSpecial reports whether the tier is rare or rarer.
func (r Rarity) IsSpecial() bool {
	return r.Rank() <= RarityRare.Rank()
}

// IsMythic reports whether the tier is mythic or insane.
func (r Rarity) IsMythic() bool {
	return r.Rank() <= RarityMythic.Rank()
}

type Actor struct {
	UserID        string `json:"user_id,omitempty"`
	Username      string `json:"custom_username,omitempty"`
	DiscordID     string `json:"discord_id,omitempty"`
	DiscordAvatar string `json:"discord_avatar,omitempty"`
}

type Drop struct {
	Rarity      Rarity `json:"item_rarity"`
	ItemName    string `json:"item_name"`
	ItemTexture string `json:"item_texture,omitempty"`
	Lucky       bool   `json:"is_lucky,omitempty"`
	BonusEvent  bool   `json:"is_bonus_event,omitempty"`
}

type Achievement struct {
	AchievementID string `json:"achievement_id,omitempty"`
	Name          string `json:"achievement_name,omitempty"`
	Category      string `json:"achievement_category,omitempty"`
	Hidden        bool   `json:"achievement_hidden,omitempty"`
}

// DisplayName returns the name shown for the actor.
func (a Actor) DisplayName() string {
	switch {
	case a.Username != "":
		return a.Username
	case a.UserID != "":
		return "Player " + a.UserID
	}
	return "Someone"
}

// Event is an immutable fact emitted once by the backend. Only the field
// matching Kind carries data; all fields are values so a copied Event
// shares nothing with its source.
type Event struct {
	ID          EventID
	CreatedAt   RawTime
	Kind        Kind
	Actor       Actor
	Drop        Drop
	Achievement Achievement
}

type wireEvent struct {
	ID        EventID `json:"id"`
	CreatedAt RawTime `json:"created_at"`
	EventType string  `json:"event_type,omitempty"`
	Actor
	Drop
	Achievement
}

// UnmarshalJSON decodes the backend's flat activity record. Any event_type
// other than achievement_unlock is a drop.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	*e = Event{ID: w.ID, CreatedAt: w.CreatedAt, Actor: w.Actor}
	if Kind(w.EventType) == KindAchievement {
		e.Kind = KindAchievement
		e.Achievement = w.Achievement
	} else {
		e.Kind = KindDrop
		e.Drop = w.Drop
	}
	return nil
}

// MarshalJSON writes the same flat shape the backend produces.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{ID: e.ID, CreatedAt: e.CreatedAt, EventType: string(e.Kind), Actor: e.Actor}
	if e.Kind == KindAchievement {
		w.Achievement = e.Achievement
		return json.Marshal(struct {
			ID        EventID `json:"id"`
			CreatedAt RawTime `json:"created_at"`
			EventType string  `json:"event_type"`
			Actor
			Achievement
		}{w.ID, w.CreatedAt, w.EventType, w.Actor, w.Achievement})
	}
	return json.Marshal(struct {
		ID        EventID `json:"id"`
		CreatedAt RawTime `json:"created_at"`
		EventType string  `json:"event_type"`
		Actor
		Drop
	}{w.ID, w.CreatedAt, w.EventType, w.Actor, e.Drop})
}

// RawTime is a timestamp exactly as the backend sent it: a string with or
// without a zone marker, or an epoch number. clock.Parse interprets it.
type RawTime string

// UnmarshalJSON accepts a JSON string or number.
func (t *RawTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		*t = RawTime(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	*t = RawTime(n.String())
	return nil
}

// Batch is one delivery from either source.
type Batch struct {
	Events     []Event `json:"feed"`
	ServerTime RawTime `json:"serverTime,omitempty"`
}

// ParseBatch decodes a push payload: a {"feed": [...]} envelope, a bare
// array of events, or a single event object.
func ParseBatch(data []byte) (*Batch, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	switch data[0] {
	case '[':
		var events []Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("decode event list: %w", err)
		}
		return &Batch{Events: events}, nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if _, ok := probe["feed"]; ok {
			var b Batch
			if err := json.Unmarshal(data, &b); err != nil {
				return nil, fmt.Errorf("decode batch: %w", err)
			}
			return &b, nil
		}
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return &Batch{Events: []Event{e}}, nil
	}
	return nil, fmt.Errorf("unsupported payload starting with %q", data[0])
}
