package http

import (
	"net/http"

	applog "spendwatch/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := s.expenses.ListExpenses(r.Context())
	if err != nil {
		s.writeError(w, r, err, MsgExpenseNotFound, applog.ComponentExpense, applog.OpList)
		return
	}
	if len(items) == 0 {
		NotFoundError(MsgNoExpenses).Write(w)
		return
	}
	NewJSONResponse().Set("expenses", items).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	exp, errs := ParseExpenseCreate(w, r)
	if errs != nil {
		ValidationErrorResponse(errs).Write(w)
		return
	}

	saved, err := s.expenses.CreateExpense(r.Context(), exp)
	if err != nil {
		s.writeError(w, r, err, MsgExpenseNotFound, applog.ComponentExpense, applog.OpCreate)
		return
	}
	s.slogger.LogExpenseWritten(r.Context(), applog.OpCreate, saved)
	NewJSONResponse().Status(http.StatusCreated).Set("expense", saved).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(MsgExpenseNotFound).Write(w)
		return
	}
	exp, err := s.expenses.GetExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, MsgExpenseNotFound, applog.ComponentExpense, applog.OpRead)
		return
	}
	NewJSONResponse().Set("expense", exp).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(MsgExpenseNotFound).Write(w)
		return
	}
	patch, errs := ParseExpensePatch(w, r)
	if errs != nil {
		ValidationErrorResponse(errs).Write(w)
		return
	}

	exp, err := s.expenses.UpdateExpense(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err, MsgExpenseNotFound, applog.ComponentExpense, applog.OpUpdate)
		return
	}
	s.slogger.LogExpenseWritten(r.Context(), applog.OpUpdate, exp)
	NewJSONResponse().Set("expense", exp).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(MsgExpenseNotFound).Write(w)
		return
	}
	exp, err := s.expenses.DeleteExpense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, MsgExpenseNotFound, applog.ComponentExpense, applog.OpDelete)
		return
	}
	NewJSONResponse().Set("expense", exp).Write(w)
}
