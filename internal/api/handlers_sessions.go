package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/summitapp/viewerd/internal/viewer"
)

type createSessionRequest struct {
	DocumentID    string  `json:"document_id"`
	ReadingID     string  `json:"reading_id"`
	StartPage     int     `json:"start_page"`
	ViewportWidth int     `json:"viewport_width"`
	PixelRatio    float64 `json:"device_pixel_ratio"`
	UpstreamToken string  `json:"upstream_token"`
	WaitReady     bool    `json:"wait_ready"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.DocumentID == "" {
		jsonError(w, "document_id is required", http.StatusBadRequest)
		return
	}
	if req.StartPage < 0 {
		jsonError(w, "start_page must not be negative", http.StatusBadRequest)
		return
	}
	if req.WaitReady && s.deps.Poller == nil {
		jsonError(w, "wait_ready is not supported: no status endpoint configured", http.StatusBadRequest)
		return
	}

	width := req.ViewportWidth
	if width <= 0 {
		width = s.cfg.DefaultWidthPx
	}
	ratio := req.PixelRatio
	if ratio <= 0 {
		ratio = s.cfg.DefaultPixelRatio
	}

	sess := viewer.NewSession(viewer.NewSessionID(), viewer.Options{
		DocumentID:    req.DocumentID,
		ReadingID:     req.ReadingID,
		StartPage:     req.StartPage,
		Credential:    req.UpstreamToken,
		ViewportWidth: width,
		PixelRatio:    ratio,
		WaitReady:     req.WaitReady,
	}, s.deps)

	if err := s.store.Add(sess); err != nil {
		sess.Close()
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	sess.Open()

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"state":      sess.State(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess := s.store.Remove(id)
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	sess.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.Next())
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.Prev())
}

func (s *Server) handleCommitPage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req struct {
		Page int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, sess.CommitPage(req.Page))
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req struct {
		Width      int     `json:"width"`
		PixelRatio float64 `json:"device_pixel_ratio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Width <= 0 {
		jsonError(w, "width must be positive", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, sess.UpdateViewport(req.Width, req.PixelRatio))
}

// session resolves the sessionID path parameter, writing a 404 when
// it does not exist.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *viewer.Session {
	id := chi.URLParam(r, "sessionID")
	sess := s.store.Get(id)
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return nil
	}
	return sess
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
