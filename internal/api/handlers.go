package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/opennotify/autonotifier/internal/announce"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type scrapeResponse struct {
	RunID      string               `json:"runId"`
	Status     announce.RunStatus   `json:"status"`
	Scraped    int                  `json:"scraped"`
	SaveResult *announce.SaveResult `json:"saveResult,omitempty"`
	StartedAt  time.Time            `json:"startedAt"`
	FinishedAt time.Time            `json:"finishedAt"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, "not ready", err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleScrape runs the pipeline once, without notification fan-out. The
// response mirrors the save result so callers can see exactly what was new.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()

	outcome := s.pipeline.Run(ctx)
	if outcome.Status == announce.RunStatusFailed {
		s.writeError(w, http.StatusBadGateway, "scrape run failed", outcome.Err)
		return
	}
	s.writeJSON(w, http.StatusOK, scrapeOutcomeBody(outcome))
}

// handleCronRun triggers the full cron path on demand. An active run yields
// 409 rather than queueing a second one.
func (s *Server) handleCronRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()

	outcome, ok := s.trigger.TryTrigger(ctx)
	if !ok {
		s.writeError(w, http.StatusConflict, "a run is already in progress", nil)
		return
	}
	if outcome.Status == announce.RunStatusFailed {
		s.writeError(w, http.StatusBadGateway, "scrape run failed", outcome.Err)
		return
	}
	s.writeJSON(w, http.StatusOK, scrapeOutcomeBody(outcome))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeError(w, http.StatusNotImplemented, "run history is not configured", nil)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "listing runs failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleListRecipients(w http.ResponseWriter, r *http.Request) {
	emails, err := s.recipients.ListAll(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "listing recipients failed", err)
		return
	}
	if emails == nil {
		emails = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"recipients": emails})
}

func (s *Server) handleAddRecipient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if req.Email == "" {
		s.writeError(w, http.StatusBadRequest, "email is required", nil)
		return
	}
	added, err := s.recipients.Add(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "adding recipient failed", err)
		return
	}
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	s.writeJSON(w, status, map[string]any{
		"email": announce.NormalizeEmail(req.Email),
		"added": added,
	})
}

func (s *Server) handleRemoveRecipient(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		s.writeError(w, http.StatusBadRequest, "email path parameter is required", err)
		return
	}
	removed, err := s.recipients.Remove(r.Context(), email)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "removing recipient failed", err)
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "recipient not found", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"email":   announce.NormalizeEmail(email),
		"removed": true,
	})
}

func scrapeOutcomeBody(outcome announce.RunOutcome) scrapeResponse {
	resp := scrapeResponse{
		RunID:      outcome.RunID,
		Status:     outcome.Status,
		Scraped:    len(outcome.Scraped),
		StartedAt:  outcome.StartedAt,
		FinishedAt: outcome.FinishedAt,
	}
	save := outcome.Save
	resp.SaveResult = &save
	return resp
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
	}
}

// writeError hides internal detail unless the server runs in development
// mode.
func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil {
		s.logger.Warn("request failed",
			zap.Int("status", status), zap.String("error", message), zap.Error(err))
		if s.cfg.Development {
			resp.Detail = err.Error()
		}
	}
	s.writeJSON(w, status, resp)
}
