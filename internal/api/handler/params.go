package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"contest_registry/internal/app/service"
	"contest_registry/internal/common"
	"contest_registry/internal/platform/config"
	"contest_registry/internal/platform/spreadsheet"

	"github.com/go-chi/chi/v5"
)

const maxPageSize = 100

// decodeJSON writes a 400 and reports false when the body is not valid JSON for dest.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

func urlID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid "+name+": "+raw)
		return 0, false
	}
	return uint(id), true
}

func pageFromQuery(r *http.Request) service.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return service.PageRequest{Page: page, PageSize: pageSize}
}

// queryUint reads an optional id filter. Absent means nil; malformed writes a 400.
func queryUint(w http.ResponseWriter, r *http.Request, name string) (*uint, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid "+name+": "+raw)
		return nil, false
	}
	v := uint(id)
	return &v, true
}

func queryBool(w http.ResponseWriter, r *http.Request, name string) (*bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid "+name+": "+raw)
		return nil, false
	}
	return &v, true
}

// uploadedFile reads the multipart "file" field, bounded by the configured upload size.
func uploadedFile(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	limit := config.AppConfig.UploadMaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return "", nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Missing file field: "+err.Error())
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Could not read upload: "+err.Error())
		return "", nil, false
	}
	if int64(len(data)) > limit {
		common.RespondWithError(w, http.StatusRequestEntityTooLarge, "Upload exceeds "+strconv.FormatInt(limit, 10)+" bytes")
		return "", nil, false
	}
	return header.Filename, data, true
}

// writeWorkbook buffers the export so a failure halfway still produces a JSON error.
// write returns the file name offered to the client.
func writeWorkbook(w http.ResponseWriter, write func(io.Writer) (string, error)) {
	var buf bytes.Buffer
	fileName, err := write(&buf)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", spreadsheet.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(fileName, `"`, "")+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
