package handler

import (
	"net/http"

	"contest_registry/internal/api/middleware"
	"contest_registry/internal/app/service"
	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SupervisorHandler struct {
	supervisorService *service.SupervisorService
	transfer          *TransferHandler
}

func NewSupervisorHandler(ss *service.SupervisorService, transfer *TransferHandler) *SupervisorHandler {
	return &SupervisorHandler{supervisorService: ss, transfer: transfer}
}

func (h *SupervisorHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/statistics", h.statistics)
	h.transfer.Mount(r, model.ImportSupervisors)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(model.RoleAdmin))
		admin.Post("/", h.create)
		admin.Put("/{id}", h.update)
		admin.Delete("/{id}", h.delete)
	})
}

func (h *SupervisorHandler) list(w http.ResponseWriter, r *http.Request) {
	active, ok := queryBool(w, r, "active")
	if !ok {
		return
	}
	q := r.URL.Query()
	res, err := h.supervisorService.List(r.Context(), service.SupervisorListRequest{
		Search:      q.Get("search"),
		Department:  q.Get("department"),
		Active:      active,
		PageRequest: pageFromQuery(r),
	})
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *SupervisorHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	sup, err := h.supervisorService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sup)
}

func (h *SupervisorHandler) statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	st, err := h.supervisorService.Statistics(r.Context(), id)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, st)
}

func (h *SupervisorHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSupervisorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sup, err := h.supervisorService.Create(r.Context(), req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, sup)
}

func (h *SupervisorHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req service.UpdateSupervisorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sup, err := h.supervisorService.Update(r.Context(), id, req)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sup)
}

func (h *SupervisorHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := h.supervisorService.Delete(r.Context(), id); err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
