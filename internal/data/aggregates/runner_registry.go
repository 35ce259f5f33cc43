package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/racegraph/internal/data/graph"
	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
	"github.com/yungbote/racegraph/internal/domain/race"
)

const opRunnerRegister = "runner.register"

// RegisterRunnerInput describes one player slot. ExternalUserID is nil for bots.
type RegisterRunnerInput struct {
	ExternalUserID *string
	DisplayName    string
	Choices        race.Choices
}

// RunnerRegistry creates a fresh runner per slot, bound to its four equipment choices.
type RunnerRegistry struct {
	deps    BaseDeps
	catalog *CatalogResolver
}

func NewRunnerRegistry(deps BaseDeps, catalog *CatalogResolver) *RunnerRegistry {
	deps = deps.withDefaults()
	if catalog == nil {
		catalog = NewCatalogResolver(deps)
	}
	return &RunnerRegistry{deps: deps, catalog: catalog}
}

func (a *RunnerRegistry) Register(ctx context.Context, in RegisterRunnerInput) (uuid.UUID, error) {
	if err := validateChoices(opRunnerRegister, "choices", in.Choices); err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	err := executeWrite(ctx, a.deps, opRunnerRegister, func(tx graph.Tx) error {
		var err error
		id, err = a.RegisterInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// RegisterInTx resolves the choices and creates the runner with all four edges in tx.
func (a *RunnerRegistry) RegisterInTx(ctx context.Context, tx graph.Tx, in RegisterRunnerInput) (uuid.UUID, error) {
	if err := validateChoices(opRunnerRegister, "choices", in.Choices); err != nil {
		return uuid.Nil, err
	}
	r := race.Runner{
		ID:          uuid.New(),
		DisplayName: strings.TrimSpace(in.DisplayName),
		CreatedAt:   time.Now().UTC(),
	}
	if in.ExternalUserID != nil {
		if ext := strings.TrimSpace(*in.ExternalUserID); ext != "" {
			r.ExternalUserID = &ext
		}
	}
	slots := []struct {
		kind race.CatalogKind
		name string
		dst  *race.CatalogItem
	}{
		{race.KindCharacter, in.Choices.Character, &r.Character},
		{race.KindKart, in.Choices.Kart, &r.Kart},
		{race.KindWheel, in.Choices.Wheel, &r.Wheel},
		{race.KindGlider, in.Choices.Glider, &r.Glider},
	}
	for _, s := range slots {
		item, err := a.catalog.ResolveInTx(ctx, tx, s.kind, s.name)
		if err != nil {
			return uuid.Nil, err
		}
		*s.dst = item
	}
	if err := tx.CreateRunner(ctx, r); err != nil {
		return uuid.Nil, err
	}
	return r.ID, nil
}

func validateChoices(op, prefix string, c race.Choices) error {
	for _, f := range []struct{ field, value string }{
		{"character", c.Character},
		{"kart", c.Kart},
		{"wheel", c.Wheel},
		{"glider", c.Glider},
	} {
		if race.NormalizeName(f.value) == "" {
			return domainagg.NewFieldError(op, prefix+"."+f.field, "is required")
		}
	}
	return nil
}
