package aggregates

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	graphtest "github.com/yungbote/racegraph/internal/data/graph/testutil"
	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
	"github.com/yungbote/racegraph/internal/domain/race"
)

func TestCatalogResolver_ConcurrentCallersConverge(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	resolver := NewCatalogResolver(BaseDeps{Store: store, Log: graphtest.Logger(t)})

	const callers = 24
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item, err := resolver.Resolve(context.Background(), race.KindCharacter, "Yoshi")
			ids[i], errs[i] = item.ID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("caller %d got %s, caller 0 got %s", i, ids[i], ids[0])
		}
	}
	if n := graphtest.Count(t, store, "catalog_items", "kind = ? AND name = ?", "Character", "Yoshi"); n != 1 {
		t.Fatalf("catalog rows: want=1 got=%d", n)
	}
}

func TestCatalogResolver_TrimsNames(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	resolver := NewCatalogResolver(BaseDeps{Store: store})

	a, err := resolver.Resolve(context.Background(), race.KindWheel, "Slick")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, err := resolver.Resolve(context.Background(), race.KindWheel, "  Slick\t")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.ID != b.ID || b.Name != "Slick" {
		t.Fatalf("expected one node named Slick, got %+v and %+v", a, b)
	}
}

func TestCatalogResolver_Validation(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	resolver := NewCatalogResolver(BaseDeps{Store: store})

	if _, err := resolver.Resolve(context.Background(), race.KindKart, " "); domainagg.FieldOf(err) != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), race.CatalogKind("Item"), "Banana"); domainagg.FieldOf(err) != "kind" {
		t.Fatalf("expected kind validation error, got %v", err)
	}
	if n := graphtest.Count(t, store, "catalog_items", ""); n != 0 {
		t.Fatalf("catalog rows: want=0 got=%d", n)
	}
}

func TestCatalogResolver_StorageFailureSurfaces(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	resolver := NewCatalogResolver(BaseDeps{Store: store})
	if err := store.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := resolver.Resolve(context.Background(), race.KindTrack, "Water Park")
	if !domainagg.IsPersistence(err) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}
