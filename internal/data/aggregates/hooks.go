package aggregates

import (
	"strings"
	"time"

	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
	"github.com/yungbote/racegraph/internal/domain/race"
	"github.com/yungbote/racegraph/internal/observability"
)

// Hooks receives write outcomes from the race graph aggregates.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	// RaceRecorded fires once per committed finished-race report.
	RaceRecorded(mode race.Mode, runners int)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) RaceRecorded(race.Mode, int)                    {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks feeds aggregate outcomes into the prometheus metrics. Labels are
// clamped to the known operations, codes and modes so a bad caller cannot grow the series.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &metricsHooks{metrics: metrics}
}

func (h *metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(operationLabel(name), statusLabel(status), dur)
}

func (h *metricsHooks) IncConflict(name string) {
	h.metrics.IncAggregateConflict(operationLabel(name))
}

func (h *metricsHooks) IncRetry(name string) {
	h.metrics.IncAggregateRetry(operationLabel(name))
}

func (h *metricsHooks) RaceRecorded(mode race.Mode, runners int) {
	label := strings.ToLower(strings.TrimSpace(string(mode)))
	if !race.Mode(label).Valid() {
		label = "other"
	}
	h.metrics.IncRaceRecorded(label, runners)
}

var knownOperations = map[string]bool{
	opCatalogResolve:     true,
	opRunnerRegister:     true,
	opRaceOpen:           true,
	opAttachPosition:     true,
	opRecordFinishedRace: true,
}

func operationLabel(name string) string {
	name = strings.TrimSpace(name)
	if knownOperations[name] {
		return name
	}
	return "other"
}

func statusLabel(status string) string {
	status = strings.TrimSpace(status)
	switch domainagg.ErrorCode(status) {
	case domainagg.CodeValidation, domainagg.CodeNotFound, domainagg.CodeConflict,
		domainagg.CodePersistence, domainagg.CodeInternal:
		return status
	}
	if status == "success" {
		return status
	}
	return "failure"
}
