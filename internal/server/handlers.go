package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/domain"
	"github.com/yolodolo42/sitepilot/internal/editor"
	"github.com/yolodolo42/sitepilot/internal/media"
	"github.com/yolodolo42/sitepilot/internal/store"
)

const maxJSONBody = 4 << 20

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// badRequest marks client input errors.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	Error(w, status, msg)
}

func statusFor(err error) (int, string) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.msg
	case errors.Is(err, agent.ErrEmptyGoal):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound), errors.Is(err, agent.ErrPageNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, media.ErrUnsupportedType), errors.Is(err, media.ErrEmpty):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, agent.ErrMaxRoundsExceeded):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "goal run timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return badRequest{msg: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Repo.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "err", err)
		Error(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.opts.Repo.ListPages(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if pages == nil {
		pages = []domain.Page{}
	}
	JSON(w, http.StatusOK, pages)
}

type pageResponse struct {
	Page     domain.Page      `json:"page"`
	Sections []domain.Section `json:"sections"`
}

func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := s.opts.Repo.GetPageBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sections, err := s.opts.Repo.ListSections(ctx, page.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if sections == nil {
		sections = []domain.Section{}
	}
	JSON(w, http.StatusOK, pageResponse{Page: *page, Sections: sections})
}

func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.opts.Editor.Load(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, doc)
}

func (s *Server) saveDocument(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		s.fail(w, r, badRequest{msg: "could not read body"})
		return
	}
	doc, err := editor.ParseDocument(raw)
	if err != nil {
		s.fail(w, r, badRequest{msg: err.Error()})
		return
	}
	section, err := s.opts.Editor.Save(r.Context(), chi.URLParam(r, "slug"), *doc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, section)
}

type goalRequest struct {
	Goal   string `json:"goal"`
	PageID string `json:"pageId"`
}

type goalResponse struct {
	Result string `json:"result"`
	RunID  string `json:"run_id"`
	Rounds int    `json:"rounds"`
}

func (s *Server) runGoal(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runner == nil {
		Error(w, http.StatusServiceUnavailable, "no language model configured")
		return
	}
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		s.fail(w, r, agent.ErrEmptyGoal)
		return
	}

	res, err := s.opts.Runner.RunGoal(r.Context(), req.Goal, req.PageID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, goalResponse{Result: res.Output, RunID: res.RunID, Rounds: res.Rounds})
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, badRequest{msg: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	entries, err := s.opts.Repo.ListAudit(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	JSON(w, http.StatusOK, entries)
}

func (s *Server) uploadMedia(w http.ResponseWriter, r *http.Request) {
	if s.opts.Media == nil {
		Error(w, http.StatusServiceUnavailable, "media storage not configured")
		return
	}
	if s.opts.MaxUpload > 0 {
		// Leave room for the multipart envelope; the uploader enforces the
		// exact file limit.
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload+1<<20)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.fail(w, r, media.ErrTooLarge)
			return
		}
		s.fail(w, r, badRequest{msg: "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	obj, err := s.opts.Media.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, obj)
}
