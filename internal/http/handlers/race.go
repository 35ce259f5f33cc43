package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/racegraph/internal/domain/race"
	"github.com/yungbote/racegraph/internal/http/response"
	"github.com/yungbote/racegraph/internal/services"
)

type RaceHandler struct {
	races services.RaceService
}

func NewRaceHandler(races services.RaceService) *RaceHandler {
	return &RaceHandler{races: races}
}

// POST /api/races
// POST /race/finish
// body: finished-race report, players in finishing order
func (h *RaceHandler) FinishRace(c *gin.Context) {
	var report race.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	raceID, err := h.races.RecordFinishedRace(c.Request.Context(), report)
	if err != nil {
		response.RespondServiceError(c, "record_race_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"race_id": raceID})
}

// GET /api/races/:id
func (h *RaceHandler) GetRace(c *gin.Context) {
	raceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondFieldError(c, http.StatusBadRequest, "invalid_race_id", "id", err)
		return
	}
	result, err := h.races.GetRace(c.Request.Context(), raceID)
	if err != nil {
		response.RespondServiceError(c, "get_race_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"race": result})
}

// GET /api/races?limit=N
func (h *RaceHandler) ListRaces(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondFieldError(c, http.StatusBadRequest, "invalid_limit", "limit", err)
			return
		}
		limit = n
	}
	races, err := h.races.ListRaces(c.Request.Context(), limit)
	if err != nil {
		response.RespondServiceError(c, "list_races_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"races": races})
}
