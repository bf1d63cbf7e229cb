package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/analysis"
	"github.com/joseph-ayodele/medrecords/internal/async"
	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/export"
	"github.com/joseph-ayodele/medrecords/internal/ingest"
	"github.com/joseph-ayodele/medrecords/internal/pipeline"
)

const multipartMemory = 32 << 20

// uploadResponse is returned for synchronous uploads and as the last line of
// a progress stream.
type uploadResponse struct {
	Type     string           `json:"type,omitempty"`
	RecordID *uuid.UUID       `json:"record_id,omitempty"`
	Result   *pipeline.Result `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type progressLine struct {
	Type string `json:"type"`
	pipeline.Event
}

type queuedResponse struct {
	JobID uuid.UUID `json:"job_id"`
	Name  string    `json:"name"`
}

func ownerFrom(r *http.Request) string {
	if o := common.OwnerIDFromContext(r.Context()); o != "" {
		return o
	}
	if o := r.URL.Query().Get("owner_id"); o != "" {
		return o
	}
	return r.FormValue("owner_id")
}

func flag(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// readUpload pulls the "file" part out of a multipart request.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (entity.RawDocument, error) {
	if r.ContentLength > s.cfg.MaxUploadBytes {
		return entity.RawDocument{}, &http.MaxBytesError{Limit: s.cfg.MaxUploadBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return entity.RawDocument{}, err
		}
		return entity.RawDocument{}, common.NewAppError("INVALID_INPUT", "expected multipart form with a file field", common.ErrInvalidInput)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return entity.RawDocument{}, common.NewAppError("INVALID_INPUT", "missing file field", common.ErrInvalidInput)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return entity.RawDocument{}, err
	}

	mediaType := r.FormValue("media_type")
	if mediaType == "" {
		mediaType = hdr.Header.Get("Content-Type")
	}
	if mediaType == "" || constants.NormalizeMediaType(mediaType) == "application/octet-stream" {
		mediaType = ingest.DetectMediaType(hdr.Filename, data)
	}

	v := common.NewValidator().
		Field("file", data, common.Required).
		Field("file_name", hdr.Filename, common.Required, common.MaxLength(255)).
		Field("media_type", mediaType, common.MediaType)
	if err := v.Err(); err != nil {
		return entity.RawDocument{}, err
	}
	return entity.RawDocument{
		Name:      hdr.Filename,
		MediaType: constants.NormalizeMediaType(mediaType),
		Data:      data,
	}, nil
}

// uploadDocument handles POST /v1/documents. With ?async=1 the document is
// queued; with ?stream=1 progress events are written as NDJSON lines before
// the result.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.proc.CanProcess(doc.MediaType) {
		s.writeError(w, r, common.NewAppError("UNSUPPORTED_MEDIA",
			fmt.Sprintf("%s (%s)", doc.MediaType, constants.ProcessingMethodDescription(doc.MediaType)), common.ErrUnsupportedMedia))
		return
	}
	owner := ownerFrom(r)

	if flag(r, "async") && s.queue != nil {
		job := async.Job{ID: uuid.New(), OwnerID: owner, Document: doc, Force: flag(r, "force"), TraceID: common.RequestIDFromContext(r.Context())}
		if err := s.queue.Enqueue(r.Context(), job); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, queuedResponse{JobID: job.ID, Name: doc.Name})
		return
	}

	if flag(r, "stream") {
		s.streamProcess(w, r, doc, owner)
		return
	}

	ctx, cancel := common.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	res, perr := s.proc.Process(ctx, doc, pipeline.Discard)
	resp := s.persist(r, res, perr, owner)
	if perr != nil {
		writeJSON(w, statusFor(perr), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) streamProcess(w http.ResponseWriter, r *http.Request, doc entity.RawDocument, owner string) {
	ctx, cancel := common.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	stream := pipeline.NewStream(ctx)
	type outcome struct {
		res *pipeline.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer stream.Close()
		res, err := s.proc.Process(ctx, doc, stream)
		done <- outcome{res, err}
	}()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for e := range stream.C() {
		_ = enc.Encode(progressLine{Type: "progress", Event: e})
		if flusher != nil {
			flusher.Flush()
		}
	}
	out := <-done
	resp := s.persist(r, out.res, out.err, owner)
	_ = enc.Encode(resp)
	if flusher != nil {
		flusher.Flush()
	}
}

// persist stores a finished result unless processing was cancelled.
func (s *Server) persist(r *http.Request, res *pipeline.Result, perr error, owner string) uploadResponse {
	resp := uploadResponse{Type: "result", Result: res}
	if perr != nil {
		resp.Type = "error"
		resp.Error = perr.Error()
	}
	if res == nil || s.store == nil || (perr != nil && common.IsCancellation(perr)) {
		return resp
	}
	rec := res.Record(owner, "")
	if err := s.store.Save(r.Context(), rec); err != nil {
		common.LoggerFromContext(r.Context(), s.logger).Error("http.persist.failed", "name", res.Name, "error", err)
		if resp.Error == "" {
			resp.Error = err.Error()
		}
		return resp
	}
	resp.RecordID = &rec.ID
	return resp
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.Search(r.Context(), ownerFrom(r), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": recs, "count": len(recs)})
}

func parseID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	if err := common.NewValidator().Field("id", raw, common.UUID).Err(); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type highlightResponse struct {
	ID          uuid.UUID `json:"id"`
	Query       string    `json:"query"`
	Matches     bool      `json:"matches"`
	Highlighted string    `json:"highlighted"`
}

func (s *Server) highlightDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query().Get("q")
	if err := common.NewValidator().Field("q", q, common.Required, common.MaxLength(200)).Err(); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, highlightResponse{
		ID:          id,
		Query:       q,
		Matches:     analysis.Search(rec.ExtractedText, q),
		Highlighted: analysis.Highlight(rec.ExtractedText, q),
	})
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type capability struct {
	MediaType string `json:"media_type"`
	Supported bool   `json:"supported"`
	Method    string `json:"method"`
}

func (s *Server) capability(mt string) capability {
	mt = constants.NormalizeMediaType(mt)
	return capability{MediaType: mt, Supported: s.proc.CanProcess(mt), Method: constants.ProcessingMethodDescription(mt)}
}

// capabilities answers GET /v1/capabilities, for one media type or all known ones.
func (s *Server) capabilities(w http.ResponseWriter, r *http.Request) {
	if mt := r.URL.Query().Get("media_type"); mt != "" {
		writeJSON(w, http.StatusOK, s.capability(mt))
		return
	}
	seen := map[string]bool{}
	var all []capability
	for _, mt := range constants.AllowedExtensions {
		if !seen[mt] {
			seen[mt] = true
			all = append(all, s.capability(mt))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].MediaType < all[j].MediaType })
	writeJSON(w, http.StatusOK, map[string]any{"media_types": all})
}

func parseDay(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", field+" must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	return &t, nil
}

func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "NOT_IMPLEMENTED", Message: "export is not configured"})
		return
	}
	q := r.URL.Query()
	from, err := parseDay("from", q.Get("from"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := parseDay("to", q.Get("to"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.exporter.ExportDocumentsXLSX(r.Context(), export.Filter{OwnerID: ownerFrom(r), Query: q.Get("q"), From: from, To: to})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="documents.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
