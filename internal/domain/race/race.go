package race

import (
	"time"

	"github.com/google/uuid"
)

// Mode is where the race was played.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeOnline Mode = "online"
)

func (m Mode) Valid() bool {
	return m == ModeLocal || m == ModeOnline
}

// Choices are the four equipment names a runner picked before the race.
type Choices struct {
	Character string `json:"character"`
	Kart      string `json:"kart"`
	Wheel     string `json:"wheel"`
	Glider    string `json:"glider"`
}

// Runner is one player's entry in one race submission. Its choices are fixed at creation.
type Runner struct {
	ID             uuid.UUID   `json:"runner_id"`
	ExternalUserID *string     `json:"external_user_id,omitempty"`
	DisplayName    string      `json:"display_name,omitempty"`
	Character      CatalogItem `json:"character"`
	Kart           CatalogItem `json:"kart"`
	Wheel          CatalogItem `json:"wheel"`
	Glider         CatalogItem `json:"glider"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Race is one finished-race event. Immutable after creation apart from its positions.
type Race struct {
	ID        uuid.UUID   `json:"race_id"`
	Mode      Mode        `json:"mode"`
	Track     CatalogItem `json:"track"`
	CreatedAt time.Time   `json:"created_at"`
}

// Position links one runner to one race.
type Position struct {
	RaceID   uuid.UUID `json:"race_id"`
	RunnerID uuid.UUID `json:"runner_id"`
	Rank     int       `json:"rank"`
	Stats    Stats     `json:"stats"`
}

// Standing is a position joined with its runner, as returned by race reads.
type Standing struct {
	Position
	Runner Runner `json:"runner"`
}

// RaceResult is a race with its standings ordered by rank.
type RaceResult struct {
	Race
	Standings []Standing `json:"standings"`
}
