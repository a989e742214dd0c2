package viewer

// State is a JSON-safe snapshot of a viewing session.
type State struct {
	SessionID      string  `json:"session_id"`
	DocumentID     string  `json:"document_id"`
	ReadingID      string  `json:"reading_id,omitempty"`
	CurrentPage    int     `json:"current_page"`
	PageCount      int     `json:"page_count"`
	ContainerWidth int     `json:"container_width"`
	PixelRatio     float64 `json:"pixel_ratio"`
	Loading        bool    `json:"loading"`
	Error          string  `json:"error,omitempty"`
}

// clamp forces a requested page into the valid range. With an unloaded
// document (pageCount 0) everything clamps to 1. Idempotent.
func clamp(requested, pageCount int) int {
	upper := max(pageCount, 1)
	return min(max(requested, 1), upper)
}
