package bus

import (
	"context"
	"time"
)

const EventRaceFinished = "race.finished"

// RaceEvent announces a committed race. It is published after commit and never part of it.
type RaceEvent struct {
	Type       string    `json:"type"`
	RaceID     string    `json:"race_id"`
	Mode       string    `json:"mode"`
	Track      string    `json:"track"`
	Runners    int       `json:"runners"`
	RecordedAt time.Time `json:"recorded_at"`
}

type Bus interface {
	Publish(ctx context.Context, ev RaceEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev RaceEvent)) error
	Close() error
}

type noopBus struct{}

// NewNoopBus returns a bus that drops every event. Used when redis is not configured.
func NewNoopBus() Bus { return noopBus{} }

func (noopBus) Publish(context.Context, RaceEvent) error { return nil }

func (noopBus) StartForwarder(context.Context, func(RaceEvent)) error { return nil }

func (noopBus) Close() error { return nil }
