package handler

import (
	"net/http"

	"contest_registry/internal/api/middleware"
	"contest_registry/internal/app/service"
	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ScoreHandler struct {
	scoreService *service.ScoreService
	transfer     *TransferHandler
}

func NewScoreHandler(ss *service.ScoreService, transfer *TransferHandler) *ScoreHandler {
	return &ScoreHandler{scoreService: ss, transfer: transfer}
}

func (h *ScoreHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/rank", h.rank)
	h.transfer.Mount(r, model.ImportScores)

	r.Group(func(editor chi.Router) {
		editor.Use(middleware.RequireRole(model.RoleEditor))
		editor.Post("/", h.record)
		editor.Put("/{id}", h.update)
	})
	r.With(middleware.RequireRole(model.RoleAdmin)).Delete("/{id}", h.delete)
}

func (h *ScoreHandler) list(w http.ResponseWriter, r *http.Request) {
	req := service.ScoreListRequest{PageRequest: pageFromQuery(r)}
	var ok bool
	if req.CompetitionID, ok = queryUint(w, r, "competition_id"); !ok {
		return
	}
	if req.ContestantID, ok = queryUint(w, r, "contestant_id"); !ok {
		return
	}
	if req.SupervisorID, ok = queryUint(w, r, "supervisor_id"); !ok {
		return
	}
	res, err := h.scoreService.List(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *ScoreHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	sc, err := h.scoreService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sc)
}

func (h *ScoreHandler) rank(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	rank, err := h.scoreService.Rank(r.Context(), id)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"score_id": id, "rank": rank})
}

func (h *ScoreHandler) record(w http.ResponseWriter, r *http.Request) {
	var req service.RecordScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sc, err := h.scoreService.Record(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, sc)
}

func (h *ScoreHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req service.UpdateScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sc, err := h.scoreService.Update(r.Context(), id, req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sc)
}

func (h *ScoreHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := h.scoreService.Delete(r.Context(), id); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
