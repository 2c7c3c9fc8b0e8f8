package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"taskQuestAPI/internal/achievement"
	"taskQuestAPI/internal/stats"
	"taskQuestAPI/services"
)

type StatsHandler struct {
	statsService *services.StatsService
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// GetStats returns the aggregate, creating the default record if none
// exists yet.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	agg, err := h.statsService.GetAggregate(ctx)
	if err != nil {
		log.Printf("GetStats Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}

	respondWithData(w, http.StatusOK, agg)
}

func (h *StatsHandler) PatchStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req stats.PatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	agg, err := h.statsService.PatchAggregate(ctx, &req)
	if err != nil {
		if errors.Is(err, services.ErrBadgeNotFound) {
			respondWithError(w, http.StatusNotFound, "Badge not found")
			return
		}
		log.Printf("PatchStats Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update statistics")
		return
	}

	respondWithData(w, http.StatusOK, agg)
}

func (h *StatsHandler) ReplaceBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req stats.ReplaceBadgesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Badges == nil {
		respondWithError(w, http.StatusBadRequest, "badges array is required")
		return
	}

	agg, err := h.statsService.ReplaceBadges(ctx, req.Badges)
	if err != nil {
		log.Printf("ReplaceBadges Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update badges")
		return
	}

	respondWithData(w, http.StatusOK, agg)
}

// UnlockBadge force-unlocks one badge by its path ID.
func (h *StatsHandler) UnlockBadge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	badgeID := achievement.BadgeID(mux.Vars(r)["badgeId"])

	agg, err := h.statsService.ForceUnlockBadge(ctx, badgeID)
	if err != nil {
		if errors.Is(err, services.ErrBadgeNotFound) {
			respondWithError(w, http.StatusNotFound, "Badge not found")
			return
		}
		log.Printf("UnlockBadge Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to unlock badge")
		return
	}

	respondWithData(w, http.StatusOK, agg)
}
