// Package handler exposes the bulk import workflow over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/extractor"
	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/service"
	"github.com/agrocampo/farm-ops/internal/domain/bulkimport/session"
	"github.com/agrocampo/farm-ops/pkg/storage"
)

// maxUploadBytes caps the request body; oversized uploads fail the multipart
// parse before any spreadsheet decoding happens.
const maxUploadBytes = 10 << 20

// Handler serves the import endpoints.
type Handler struct {
	svc     *service.ImportService
	archive storage.Archiver
	logger  *slog.Logger
}

// NewHandler creates the import HTTP handler. archive may be nil to disable
// upload archiving.
func NewHandler(svc *service.ImportService, archive storage.Archiver, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, archive: archive, logger: logger}
}

// RegisterRoutes mounts the import endpoints on the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/imports/{type}", h.Upload).Methods(http.MethodPost)
	r.HandleFunc("/v1/imports/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/v1/imports/{id}/confirm", h.Confirm).Methods(http.MethodPost)
	r.HandleFunc("/v1/imports/{id}/cancel", h.Cancel).Methods(http.MethodPost)
	r.HandleFunc("/v1/imports/{id}/retry", h.Retry).Methods(http.MethodPost)
	r.HandleFunc("/v1/templates/{type}", h.Template).Methods(http.MethodGet)
}

// Upload receives a spreadsheet as multipart form data under the "file"
// field, validates it, and returns the session snapshot. A batch that fails
// validation comes back as 422 with the capped error list.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	rt := extractor.RecordType(mux.Vars(r)["type"])

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.Warn("failed to parse multipart form", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, "archivo demasiado grande o formulario inválido")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "falta el campo de archivo")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read uploaded file", slog.String("filename", header.Filename), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "no se pudo leer el archivo")
		return
	}

	filename := filepath.Base(header.Filename)
	if h.archive != nil {
		if path, err := h.archive.Archive(r.Context(), filename, data); err != nil {
			h.logger.Warn("failed to archive upload", slog.String("filename", filename), slog.Any("error", err))
		} else {
			h.logger.Info("upload archived", slog.String("path", path))
		}
	}

	st, err := h.svc.Begin(r.Context(), rt, filename, data)
	if err != nil {
		var parseErr *extractor.ParseError
		switch {
		case errors.Is(err, service.ErrUnknownRecordType):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNoRows):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &parseErr):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("import begin failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "error interno")
		}
		return
	}

	code := http.StatusOK
	if st.State == session.StateValidationFailed {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, st)
}

// Get returns the current session snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Confirm starts the chunked persistence and blocks until it completes or
// the first chunk fails.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Confirm(r.Context(), id)
	if err != nil {
		var pErr *session.PersistenceError
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &pErr):
			writeJSON(w, http.StatusInternalServerError, st)
		default:
			writeError(w, http.StatusConflict, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Cancel discards a session awaiting confirmation.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Retry re-arms a session that failed mid-insert; the client confirms again
// to resume from the first unwritten chunk.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Retry(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Template streams the record type's workbook, freshly built from the
// current catalogs.
func (h *Handler) Template(w http.ResponseWriter, r *http.Request) {
	rt := extractor.RecordType(mux.Vars(r)["type"])

	data, name, err := h.svc.Template(r.Context(), rt)
	if err != nil {
		if errors.Is(err, service.ErrUnknownRecordType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("template build failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "error interno")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "identificador de sesión inválido")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
