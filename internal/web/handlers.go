package web

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"

	"course-list-sync/internal/logging"
)

// handleImport runs one import from an uploaded CSV file.
//
// Form fields: "file" (the CSV) and "dry_run" (checkbox semantics:
// present means preview only). The upload is spooled to a temp file that
// is removed on every exit path.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "The uploaded file is too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "Please select a CSV file to upload.")
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "course-import-*.csv")
	if err != nil {
		log.Error("create temp file", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not store the uploaded file.")
		return
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, file); err != nil {
		log.Error("spool upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not store the uploaded file.")
		return
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		log.Error("rewind upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not read the uploaded file.")
		return
	}

	dryRun := r.FormValue("dry_run") != ""
	runID := uuid.New().String()
	log.Info("import started", "run_id", runID, "file", header.Filename, "dry_run", dryRun)

	result := s.importer.Run(r.Context(), tmp, dryRun)
	result.ID = runID

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

// handleFields returns the merged credit and metadata field definitions.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credits, err := s.fields.CreditFields(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list credit fields", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not load field definitions.")
		return
	}
	metadata, err := s.fields.MetadataFields(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list metadata fields", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not load field definitions.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"credit_fields":   credits,
		"metadata_fields": metadata,
	})
}

// handleHealthz reports liveness and database reachability.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
