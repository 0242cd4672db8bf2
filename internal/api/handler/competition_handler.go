package handler

import (
	"net/http"

	"contest_registry/internal/api/middleware"
	"contest_registry/internal/app/service"
	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type CompetitionHandler struct {
	competitionService *service.CompetitionService
	transfer           *TransferHandler
}

func NewCompetitionHandler(cs *service.CompetitionService, transfer *TransferHandler) *CompetitionHandler {
	return &CompetitionHandler{competitionService: cs, transfer: transfer}
}

func (h *CompetitionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/statistics", h.statistics)
	r.Get("/{id}/results/export", h.transfer.exportCompetitionResults)

	r.Group(func(editor chi.Router) {
		editor.Use(middleware.RequireRole(model.RoleEditor))
		editor.Post("/", h.create)
		editor.Put("/{id}", h.update)
		editor.Put("/{id}/scores", h.updateScores)
	})
	r.With(middleware.RequireRole(model.RoleAdmin)).Delete("/{id}", h.delete)
}

func (h *CompetitionHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.competitionService.List(r.Context(), service.CompetitionListRequest{
		Search:      q.Get("search"),
		Status:      model.CompetitionStatus(q.Get("status")),
		PageRequest: pageFromQuery(r),
	})
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *CompetitionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	comp, err := h.competitionService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, comp)
}

func (h *CompetitionHandler) statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	st, err := h.competitionService.Statistics(r.Context(), id)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, st)
}

func (h *CompetitionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCompetitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	comp, err := h.competitionService.Create(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, comp)
}

func (h *CompetitionHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req service.UpdateCompetitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	comp, err := h.competitionService.Update(r.Context(), id, req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, comp)
}

func (h *CompetitionHandler) updateScores(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Scores []service.ScoreChange `json:"scores"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Scores) == 0 {
		common.RespondWithError(w, http.StatusBadRequest, "scores must not be empty")
		return
	}
	updated, err := h.competitionService.UpdateScores(r.Context(), id, req.Scores)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, updated)
}

func (h *CompetitionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := h.competitionService.Delete(r.Context(), id); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
