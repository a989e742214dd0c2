package api

import (
	"image/png"
	"net/http"
	"strconv"
)

// handleFrame streams the current raster surface as PNG. Returns 404
// until the first successful render; during a load the client should
// watch session state instead.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	frame := sess.Frame()
	if frame == nil {
		jsonError(w, "no frame rendered yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Page", strconv.Itoa(frame.Page))
	w.Header().Set("X-Pixel-Width", strconv.Itoa(frame.PixelWidth))
	w.Header().Set("X-Pixel-Height", strconv.Itoa(frame.PixelHeight))
	w.Header().Set("X-Display-Width", strconv.Itoa(frame.DisplayWidth))
	w.Header().Set("X-Display-Height", strconv.Itoa(frame.DisplayHeight))

	if err := png.Encode(w, frame.Image); err != nil {
		s.log.Warn("frame encode failed", "session_id", sess.ID, "error", err)
	}
}
