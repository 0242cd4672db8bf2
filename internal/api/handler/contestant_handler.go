package handler

import (
	"net/http"

	"contest_registry/internal/api/middleware"
	"contest_registry/internal/app/service"
	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ContestantHandler struct {
	contestantService *service.ContestantService
	transfer          *TransferHandler
}

func NewContestantHandler(cs *service.ContestantService, transfer *TransferHandler) *ContestantHandler {
	return &ContestantHandler{contestantService: cs, transfer: transfer}
}

func (h *ContestantHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/", h.list)
	r.Get("/search", h.search)
	r.Get("/{id}", h.get)
	r.Get("/{id}/average", h.average)
	r.Get("/{id}/latest-score", h.latestScore)
	h.transfer.Mount(r, model.ImportContestants)

	r.Group(func(editor chi.Router) {
		editor.Use(middleware.RequireRole(model.RoleEditor))
		editor.Post("/", h.create)
		editor.Put("/{id}", h.update)
	})
	r.With(middleware.RequireRole(model.RoleAdmin)).Delete("/{id}", h.delete)
}

func (h *ContestantHandler) list(w http.ResponseWriter, r *http.Request) {
	supervisorID, ok := queryUint(w, r, "supervisor_id")
	if !ok {
		return
	}
	active, ok := queryBool(w, r, "active")
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.contestantService.List(r.Context(), service.ContestantListRequest{
		Search:         q.Get("search"),
		SupervisorID:   supervisorID,
		EducationLevel: q.Get("education_level"),
		Active:         active,
		PageRequest:    pageFromQuery(r),
	})
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *ContestantHandler) search(w http.ResponseWriter, r *http.Request) {
	supervisorID, ok := queryUint(w, r, "supervisor_id")
	if !ok {
		return
	}
	found, err := h.contestantService.Search(r.Context(), r.URL.Query().Get("q"), supervisorID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, found)
}

func (h *ContestantHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.contestantService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, c)
}

func (h *ContestantHandler) average(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	avg, err := h.contestantService.Average(r.Context(), id)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"contestant_id": id, "average_score": avg})
}

func (h *ContestantHandler) latestScore(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	sc, err := h.contestantService.LatestScore(r.Context(), id)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sc)
}

func (h *ContestantHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateContestantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.contestantService.Create(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, c)
}

func (h *ContestantHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req service.UpdateContestantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.contestantService.Update(r.Context(), id, req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, c)
}

func (h *ContestantHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := h.contestantService.Delete(r.Context(), id); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
