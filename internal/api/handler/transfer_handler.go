package handler

import (
	"context"
	"io"
	"net/http"

	"contest_registry/internal/api/middleware"
	"contest_registry/internal/app/service"
	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

// TransferHandler serves spreadsheet export and import for every resource, plus import job status.
type TransferHandler struct {
	exportService *service.ExportService
	jobService    *service.ImportJobService
}

func NewTransferHandler(es *service.ExportService, js *service.ImportJobService) *TransferHandler {
	return &TransferHandler{exportService: es, jobService: js}
}

// Mount adds GET /export and POST /import for kind to a resource router that already authenticates.
func (h *TransferHandler) Mount(r chi.Router, kind model.ImportKind) {
	r.Get("/export", h.exportHandler(kind))
	r.With(middleware.RequireRole(model.RoleAdmin)).Post("/import", h.importHandler(kind))
}

// RegisterJobRoutes mounts import job lookups.
func (h *TransferHandler) RegisterJobRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/{jobID}", h.getJob)
}

func (h *TransferHandler) exportHandler(kind model.ImportKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var write func(w io.Writer) error
		switch kind {
		case model.ImportContestants:
			supervisorID, ok := queryUint(w, r, "supervisor_id")
			if !ok {
				return
			}
			write = func(out io.Writer) error { return h.exportService.ExportContestants(r.Context(), out, supervisorID) }
		case model.ImportSupervisors:
			write = func(out io.Writer) error { return h.exportService.ExportSupervisors(r.Context(), out) }
		case model.ImportScores:
			competitionID, ok := queryUint(w, r, "competition_id")
			if !ok {
				return
			}
			write = func(out io.Writer) error { return h.exportService.ExportScores(r.Context(), out, competitionID) }
		default:
			common.RespondWithError(w, http.StatusNotFound, "Unknown export "+string(kind))
			return
		}
		writeWorkbook(w, func(out io.Writer) (string, error) {
			return string(kind) + ".xlsx", write(out)
		})
	}
}

func (h *TransferHandler) exportCompetitionResults(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	writeWorkbook(w, func(out io.Writer) (string, error) {
		return h.exportService.ExportCompetitionResults(r.Context(), out, id)
	})
}

// importHandler runs the upload inline with ?sync=true, otherwise queues it and answers 202.
func (h *TransferHandler) importHandler(kind model.ImportKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileName, data, ok := uploadedFile(w, r)
		if !ok {
			return
		}

		if r.URL.Query().Get("sync") == "true" {
			res, err := h.jobService.RunInline(r.Context(), kind, fileName, data)
			if err != nil {
				common.RespondWithServiceError(w, err)
				return
			}
			common.RespondWithJSON(w, http.StatusOK, res)
			return
		}

		userID, _ := middleware.GetUserIDFromContext(r.Context())
		job, err := h.jobService.Enqueue(context.WithoutCancel(r.Context()), kind, fileName, data, userID)
		if err != nil {
			common.RespondWithServiceError(w, err)
			return
		}
		w.Header().Set("Location", "/api/v1/imports/"+job.ID)
		common.RespondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID, "status": job.Status})
	}
}

func (h *TransferHandler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, job)
}
