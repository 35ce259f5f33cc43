package graph

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/racegraph/internal/domain/race"
)

// Relational layout of the race graph. Node types are tables; the chose/on_track edges are
// NOT NULL columns so a runner or race row can never exist without them.

type catalogItemRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind      string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_catalog_items_kind_name,priority:1"`
	Name      string    `gorm:"type:text;not null;uniqueIndex:idx_catalog_items_kind_name,priority:2"`
	CreatedAt time.Time `gorm:"not null"`
}

func (catalogItemRow) TableName() string { return "catalog_items" }

func (r catalogItemRow) toDomain() race.CatalogItem {
	return race.CatalogItem{ID: r.ID, Kind: race.CatalogKind(r.Kind), Name: r.Name, CreatedAt: r.CreatedAt}
}

type runnerRow struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ExternalUserID *string   `gorm:"type:text;index"`
	DisplayName    string    `gorm:"type:text;not null;default:''"`
	CharacterID    uuid.UUID `gorm:"type:uuid;not null;index"`
	KartID         uuid.UUID `gorm:"type:uuid;not null;index"`
	WheelID        uuid.UUID `gorm:"type:uuid;not null;index"`
	GliderID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (runnerRow) TableName() string { return "runners" }

type raceRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Mode      string    `gorm:"type:varchar(16);not null"`
	TrackID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (raceRow) TableName() string { return "races" }

type positionRow struct {
	RaceID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunnerID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Rank        int       `gorm:"not null"`
	WeightTotal int       `gorm:"not null;default:0"`
	SpeedTotal  int       `gorm:"not null;default:0"`
	AccelTotal  int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (positionRow) TableName() string { return "positions" }

type raceParticipationRow struct {
	RunnerID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	RaceID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (raceParticipationRow) TableName() string { return "race_participations" }

func sqlModels() []any {
	return []any{
		&catalogItemRow{},
		&runnerRow{},
		&raceRow{},
		&positionRow{},
		&raceParticipationRow{},
	}
}
