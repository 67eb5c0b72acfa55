package http

import (
	"errors"
	"net/http"

	applog "spendwatch/internal/log"
	"spendwatch/internal/services"
	"spendwatch/internal/storage"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err, MsgCategoryNotFound, applog.ComponentCategory, applog.OpList)
		return
	}
	if len(cats) == 0 {
		NotFoundError(MsgNoCategories).Write(w)
		return
	}
	NewJSONResponse().Set("categories", cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	name, errs := ParseCategoryPayload(w, r)
	if errs != nil {
		ValidationErrorResponse(errs).Write(w)
		return
	}

	cat, err := s.categories.CreateCategory(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err, MsgCategoryNotFound, applog.ComponentCategory, applog.OpCreate)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category created",
		applog.FieldCategoryID, cat.ID)
	NewJSONResponse().Status(http.StatusCreated).Set("category", cat).Write(w)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(MsgCategoryNotFound).Write(w)
		return
	}
	cat, err := s.categories.GetCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, MsgCategoryNotFound, applog.ComponentCategory, applog.OpRead)
		return
	}
	NewJSONResponse().Set("category", cat).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(MsgCategoryNotFound).Write(w)
		return
	}
	name, errs := ParseCategoryPayload(w, r)
	if errs != nil {
		ValidationErrorResponse(errs).Write(w)
		return
	}

	cat, err := s.categories.RenameCategory(r.Context(), id, name)
	if err != nil {
		s.writeError(w, r, err, MsgCategoryNotFound, applog.ComponentCategory, applog.OpUpdate)
		return
	}
	NewJSONResponse().Set("category", cat).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError(MsgCategoryNotFound).Write(w)
		return
	}
	cat, err := s.categories.DeleteCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, MsgCategoryNotFound, applog.ComponentCategory, applog.OpDelete)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category deleted",
		applog.FieldCategoryID, cat.ID)
	NewJSONResponse().Set("category", cat).Write(w)
}

// writeError maps service and store errors to responses. Only unexpected
// errors are logged at error level.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg, component, op string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError(notFoundMsg).Write(w)
	case errors.Is(err, services.ErrCategoryNotFound):
		UnprocessableEntityError(MsgCategoryMissing).Write(w)
	case errors.Is(err, services.ErrCategoryInUse):
		ConflictError(MsgCategoryInUse).Write(w)
	default:
		if details, ok := asValidationErrors(err); ok {
			ValidationErrorResponse(details).Write(w)
			return
		}
		s.slogger.LogError(r.Context(), "Request failed", err, component, op,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
		InternalServerError().Write(w)
	}
}
