package http

import (
	"net/http"

	applog "dompet/internal/log"
	"dompet/internal/middleware/auth"
)

// handleDashboardStats serves the summary cards. A failed refresh still
// answers 200 with the previous snapshot and stale=true.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.svc.Stats.Stats(r.Context(), auth.UserID(r.Context()))
	writeJSON(w, http.StatusOK, newStatsResponse(stats, ok))
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	totals, err := s.svc.Reports.CategoryBreakdown(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(r.Context(), w, applog.OpAggreg, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(totals, newCategoryAmountResponse))
}

func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	months, err := parseCount(r.URL.Query(), "months")
	if err != nil {
		writeError(r.Context(), w, applog.OpAggreg, err)
		return
	}
	history, err := s.svc.Reports.BalanceHistory(r.Context(), auth.UserID(r.Context()), months)
	if err != nil {
		writeError(r.Context(), w, applog.OpAggreg, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(history, newMonthlyBalanceResponse))
}
