package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/racegraph/internal/domain/race"
)

// HooksRecorder captures aggregate hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []string
	Retries    []string
	Races      []RecordedRace
}

type RecordedRace struct {
	Mode    race.Mode
	Runners int
}

// Statuses returns the recorded status for each operation named op, in order.
func (h *HooksRecorder) Statuses(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.Operations {
		if e.Name == op {
			out = append(out, e.Status)
		}
	}
	return out
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{
		Name:     name,
		Status:   status,
		Duration: dur,
	})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}

func (h *HooksRecorder) RaceRecorded(mode race.Mode, runners int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Races = append(h.Races, RecordedRace{Mode: mode, Runners: runners})
}
