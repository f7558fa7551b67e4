package http

import (
	"net/http"

	"github.com/gorilla/mux"

	applog "dompet/internal/log"
	"dompet/internal/middleware/auth"
	"dompet/internal/services"
)

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	f, err := ParseListFilter(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	incomes, err := s.svc.Transactions.ListIncomes(r.Context(), auth.UserID(r.Context()), f)
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(incomes, newIncomeResponse))
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	in, err := readIncome(w, r)
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	income, err := s.svc.Transactions.CreateIncome(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newIncomeResponse(income))
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	in, err := readIncome(w, r)
	if err != nil {
		writeError(r.Context(), w, applog.OpUpdate, err)
		return
	}
	income, err := s.svc.Transactions.UpdateIncome(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(r.Context(), w, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, newIncomeResponse(income))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.DeleteIncome(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(r.Context(), w, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := ParseListFilter(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	expenses, err := s.svc.Transactions.ListExpenses(r.Context(), auth.UserID(r.Context()), f)
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(expenses, newExpenseResponse))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := readExpense(w, r)
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	expense, err := s.svc.Transactions.CreateExpense(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := readExpense(w, r)
	if err != nil {
		writeError(r.Context(), w, applog.OpUpdate, err)
		return
	}
	expense, err := s.svc.Transactions.UpdateExpense(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(r.Context(), w, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseResponse(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.DeleteExpense(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(r.Context(), w, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readIncome(w http.ResponseWriter, r *http.Request) (services.IncomeInput, error) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return services.IncomeInput{}, err
	}
	amount, err := parseUserAmount("amount", req.Amount)
	if err != nil {
		return services.IncomeInput{}, err
	}
	date, err := parseRequiredDate("date", req.Date)
	if err != nil {
		return services.IncomeInput{}, err
	}
	return services.IncomeInput{
		CategoryID:  sanitizeInput(req.CategoryID),
		Amount:      amount,
		Source:      sanitizeInput(req.Source),
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, nil
}

func readExpense(w http.ResponseWriter, r *http.Request) (services.ExpenseInput, error) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return services.ExpenseInput{}, err
	}
	amount, err := parseUserAmount("amount", req.Amount)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	date, err := parseRequiredDate("date", req.Date)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	return services.ExpenseInput{
		CategoryID:  sanitizeInput(req.CategoryID),
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, nil
}
