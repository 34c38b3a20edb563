package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/clearclaim/heron/internal/detector"
	"github.com/clearclaim/heron/internal/domain"
	"github.com/clearclaim/heron/internal/rules"
	"github.com/go-chi/chi/v5"
)

// DefaultDashboardThreshold is the minimum combined score for a claim to
// count toward the dashboard summary.
const DefaultDashboardThreshold = 70.0

// Handler holds dependencies for API handlers.
type Handler struct {
	detector *detector.Detector
	scorer   *rules.Scorer
	repo     domain.Repository
	cache    domain.Cache
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(det *detector.Detector, scorer *rules.Scorer, repo domain.Repository, cache domain.Cache, version string) *Handler {
	return &Handler{
		detector: det,
		scorer:   scorer,
		repo:     repo,
		cache:    cache,
		version:  version,
	}
}

// SubmitClaim handles POST /claims. The claim is persisted and run through
// the full analysis pipeline synchronously; the analysis result is the
// response body.
func (h *Handler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var claim domain.Claim
	if err := json.NewDecoder(r.Body).Decode(&claim); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate required fields
	if claim.PolicyNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "policy_number is required",
		})
		return
	}
	if claim.IncidentDate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "incident_date is required",
		})
		return
	}
	if claim.TotalClaimAmount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "total_claim_amount must be positive",
		})
		return
	}

	result := h.detector.ProcessClaim(ctx, &claim)

	writeJSON(w, http.StatusOK, result)
}

// GetClaim handles GET /claims/{id}.
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID := chi.URLParam(r, "id")

	if claimID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "claim id is required",
		})
		return
	}

	claim, err := h.detector.GetClaim(ctx, claimID)
	if err != nil {
		slog.Error("failed to get claim", "claim_id", claimID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "claim not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, claim)
}

// GetAnalysis handles GET /claims/{id}/analysis.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID := chi.URLParam(r, "id")

	if claimID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "claim id is required",
		})
		return
	}

	analysis, err := h.detector.GetAnalysis(ctx, claimID)
	if err != nil {
		slog.Error("failed to get analysis", "claim_id", claimID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "analysis not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// UpdateStatusRequest is the request body for PATCH /claims/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateClaimStatus handles PATCH /claims/{id}/status.
func (h *Handler) UpdateClaimStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if !validStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "status must be one of: submitted, approved, rejected, under_investigation",
		})
		return
	}

	if !h.detector.UpdateClaimStatus(ctx, claimID, req.Status) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "claim not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"claim_id": claimID,
		"status":   req.Status,
	})
}

// GetPolicyClaims handles GET /policies/{policyNumber}/claims.
func (h *Handler) GetPolicyClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyNumber := chi.URLParam(r, "policyNumber")

	if policyNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "policy number is required",
		})
		return
	}

	claims := h.detector.GetClaimHistory(ctx, policyNumber)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"policy_number": policyNumber,
		"claims":        claims,
		"count":         len(claims),
	})
}

// GetDashboardSummary handles GET /dashboard/summary.
func (h *Handler) GetDashboardSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	threshold := DefaultDashboardThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "threshold must be a number between 0 and 100",
			})
			return
		}
		threshold = parsed
	}

	summary := h.detector.GetDashboardSummary(ctx, threshold)

	writeJSON(w, http.StatusOK, summary)
}

// ListRules returns the active scoring rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.scorer.Rules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loaded,
		"count": len(loaded),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func validStatus(status string) bool {
	switch status {
	case domain.ClaimStatusSubmitted, domain.ClaimStatusApproved,
		domain.ClaimStatusRejected, domain.ClaimStatusUnderInvestigation:
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
