package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/middleware/auth"
	"dompet/internal/services"
)

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	kind := core.Kind(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind"))))
	cats, err := s.svc.Categories.List(r.Context(), auth.UserID(r.Context()), kind)
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(cats, newCategoryResponse))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	c, err := s.svc.Categories.Create(r.Context(), auth.UserID(r.Context()), services.CategoryInput{
		Name:  sanitizeInput(req.Name),
		Kind:  core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Color: sanitizeInput(req.Color),
	})
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCategoryResponse(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.Delete(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(r.Context(), w, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Goals

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.Goals.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(goals, newGoalResponse))
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	in, err := readGoal(w, r)
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	g, err := s.svc.Goals.Create(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newGoalResponse(g))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	in, err := readGoal(w, r)
	if err != nil {
		writeError(r.Context(), w, applog.OpUpdate, err)
		return
	}
	g, err := s.svc.Goals.Update(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(r.Context(), w, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, newGoalResponse(g))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Goals.Delete(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(r.Context(), w, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readGoal(w http.ResponseWriter, r *http.Request) (services.GoalInput, error) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return services.GoalInput{}, err
	}
	target, err := parseUserAmount("target", req.Target)
	if err != nil {
		return services.GoalInput{}, err
	}
	current, err := parseOptionalAmount("current", req.Current)
	if err != nil {
		return services.GoalInput{}, err
	}
	deadline, err := parseOptionalDate("deadline", req.Deadline)
	if err != nil {
		return services.GoalInput{}, err
	}
	return services.GoalInput{
		Name:     sanitizeInput(req.Name),
		Target:   target,
		Current:  current,
		Deadline: deadline,
	}, nil
}

// Budgets

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	budgets, err := s.svc.Budgets.List(r.Context(), auth.UserID(r.Context()), p.Year, p.Month)
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(budgets, newBudgetResponse))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	limit, err := parseUserAmount("limit", req.Limit)
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	b, err := s.svc.Budgets.Create(r.Context(), auth.UserID(r.Context()), services.BudgetInput{
		CategoryID: sanitizeInput(req.CategoryID),
		Limit:      limit,
		Month:      req.Month,
		Year:       req.Year,
	})
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBudgetResponse(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Budgets.Delete(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(r.Context(), w, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetUsage(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(r.Context(), w, applog.OpAggreg, err)
		return
	}
	usage, err := s.svc.Budgets.Usage(r.Context(), auth.UserID(r.Context()), p.Year, p.Month)
	if err != nil {
		writeError(r.Context(), w, applog.OpAggreg, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(usage, newBudgetUsageResponse))
}
