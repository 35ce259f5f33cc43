package race

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CatalogKind is the label of a shared catalog node.
type CatalogKind string

const (
	KindCharacter CatalogKind = "Character"
	KindKart      CatalogKind = "Kart"
	KindWheel     CatalogKind = "Wheel"
	KindGlider    CatalogKind = "Glider"
	KindTrack     CatalogKind = "Track"
)

// CatalogKinds lists every kind in a stable order.
var CatalogKinds = []CatalogKind{KindCharacter, KindKart, KindWheel, KindGlider, KindTrack}

func (k CatalogKind) Valid() bool {
	switch k {
	case KindCharacter, KindKart, KindWheel, KindGlider, KindTrack:
		return true
	default:
		return false
	}
}

// ParseCatalogKind accepts any casing of a kind name ("kart", "KART").
func ParseCatalogKind(s string) (CatalogKind, bool) {
	s = strings.TrimSpace(s)
	for _, k := range CatalogKinds {
		if strings.EqualFold(string(k), s) {
			return k, true
		}
	}
	return "", false
}

// CatalogItem is a deduplicated reference node, unique per (Kind, Name).
type CatalogItem struct {
	ID        uuid.UUID   `json:"id"`
	Kind      CatalogKind `json:"kind"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
}

// NormalizeName is the canonical form used for catalog identity.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
