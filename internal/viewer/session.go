// Package viewer owns paginated viewing sessions: navigation state,
// render scheduling, and write-through reading progress.
package viewer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/summitapp/viewerd/internal/docsource"
	"github.com/summitapp/viewerd/internal/obs"
	"github.com/summitapp/viewerd/internal/progress"
	"github.com/summitapp/viewerd/internal/render"
	"github.com/summitapp/viewerd/internal/sizer"
)

// DocumentLoader fetches and parses a document.
type DocumentLoader interface {
	Load(ctx context.Context, documentID, credential string) (docsource.Document, error)
}

// ProgressStore persists and resolves reading progress.
type ProgressStore interface {
	Save(ctx context.Context, readingID string, lastPage int, credential string) error
	Fetch(ctx context.Context, readingID, credential string) (progress.Progress, error)
}

// Options describe one viewing session at mount time.
type Options struct {
	DocumentID string
	ReadingID  string // empty outside a tracked-reading context
	StartPage  int    // 0 resolves from stored progress, else 1
	Credential string // forwarded to the backend, never inspected

	ViewportWidth int
	PixelRatio    float64

	// WaitReady polls the course status until processing completes
	// before fetching the document.
	WaitReady bool
}

// Deps are the collaborators a session needs.
type Deps struct {
	Source   DocumentLoader
	Progress ProgressStore
	Poller   *Poller // required only when Options.WaitReady is set

	Policy            render.Policy
	ResizeThresholdPx int
	ResizeDebounce    time.Duration

	Log  *slog.Logger
	Hook obs.Hook
}

// Session is one mounted viewer. All state mutation passes
// through the session mutex; renders and progress saves run on
// goroutines and revalidate against current state before applying
// results.
type Session struct {
	ID string

	deps     Deps
	renderer *render.Renderer
	sizer    *sizer.Sizer
	hook     obs.Hook
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	documentID  string
	readingID   string
	credential  string
	currentPage int
	pageCount   int
	width       int
	pixelRatio  float64
	loading     bool
	errMsg      string
	waitReady   bool

	doc        docsource.Document
	docRenders *sync.WaitGroup // in-flight renders against doc

	loadGen    int
	loadCancel context.CancelFunc
	renderSeq  atomic.Uint64

	lastActive atomic.Int64 // unix nanos

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSession creates a session in the loading state. Call Open to
// start the document load.
func NewSession(id string, opts Options, deps Deps) *Session {
	if deps.Hook == nil {
		deps.Hook = obs.NopHook{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:          id,
		deps:        deps,
		renderer:    render.New(deps.Policy),
		hook:        deps.Hook,
		log:         deps.Log.With("session_id", id, "document_id", opts.DocumentID),
		ctx:         ctx,
		cancel:      cancel,
		documentID:  opts.DocumentID,
		readingID:   opts.ReadingID,
		credential:  opts.Credential,
		currentPage: opts.StartPage, // unclamped until the document installs
		width:       opts.ViewportWidth,
		pixelRatio:  opts.PixelRatio,
		loading:     true,
		waitReady:   opts.WaitReady,
	}
	if s.pixelRatio <= 0 {
		s.pixelRatio = 1
	}
	s.sizer = sizer.New(deps.ResizeThresholdPx, deps.ResizeDebounce, deps.Hook, s.onWidth)
	s.touch()
	return s
}

// Open starts the asynchronous document load and the viewport sizer.
func (s *Session) Open() {
	s.sizer.Start(s.width)

	s.mu.Lock()
	loadCtx, cancel := context.WithCancel(s.ctx)
	s.loadCancel = cancel
	gen := s.loadGen
	docID := s.documentID
	cred := s.credential
	s.mu.Unlock()

	s.wg.Add(1)
	go s.load(loadCtx, gen, docID, cred)
}

// load runs the full mount sequence: optional readiness poll, start
// page resolution, fetch+parse, install.
func (s *Session) load(ctx context.Context, gen int, documentID, credential string) {
	defer s.wg.Done()

	if s.waitReady && s.deps.Poller != nil {
		if err := s.deps.Poller.Wait(ctx, func(ctx context.Context) (string, error) {
			return s.deps.Poller.Status(ctx, documentID, credential)
		}); err != nil {
			s.failLoad(gen, err)
			return
		}
	}

	s.resolveStartPage(ctx, gen, credential)

	s.hook.Emit(obs.EventLoadStarted, obs.String("document_id", documentID))
	doc, err := s.deps.Source.Load(ctx, documentID, credential)

	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		if doc != nil {
			doc.Close()
		}
		s.hook.Emit(obs.EventLoadDiscarded, obs.String("document_id", documentID))
		return
	}
	if err != nil {
		s.loading = false
		s.errMsg = err.Error()
		s.mu.Unlock()
		s.hook.Emit(obs.EventLoadFailed, obs.String("document_id", documentID), obs.Err(err))
		s.log.Error("document load failed", "error", err)
		return
	}

	s.doc = doc
	s.docRenders = &sync.WaitGroup{}
	s.pageCount = doc.PageCount()
	if s.currentPage == 0 {
		s.currentPage = 1
	}
	s.currentPage = clamp(s.currentPage, s.pageCount)
	s.loading = false
	s.errMsg = ""
	s.scheduleRenderLocked()
	pages := s.pageCount
	s.mu.Unlock()

	s.hook.Emit(obs.EventLoadInstalled, obs.String("document_id", documentID), obs.Int("pages", pages))
	s.log.Info("document installed", "pages", pages)
}

// resolveStartPage fills in the start page from stored progress when
// the caller did not supply one. Failures fall back to page 1.
func (s *Session) resolveStartPage(ctx context.Context, gen int, credential string) {
	s.mu.Lock()
	need := s.currentPage == 0 && s.readingID != ""
	readingID := s.readingID
	s.mu.Unlock()
	if !need {
		return
	}

	p, err := s.deps.Progress.Fetch(ctx, readingID, credential)
	if err != nil {
		s.log.Warn("resume point unavailable, starting at page 1", "error", err)
		return
	}
	s.mu.Lock()
	if gen == s.loadGen && s.currentPage == 0 && p.LastPage > 0 {
		s.currentPage = p.LastPage
	}
	s.mu.Unlock()
}

func (s *Session) failLoad(gen int, err error) {
	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		return
	}
	s.loading = false
	s.errMsg = err.Error()
	s.mu.Unlock()
	s.hook.Emit(obs.EventLoadFailed, obs.Err(err))
	s.log.Error("document load failed", "error", err)
}

// SetDocument switches the session to a new document. The in-flight
// load, if any, is cancelled; its late completion must not overwrite
// the new document's state.
func (s *Session) SetDocument(documentID string, startPage int) {
	s.touch()
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	if s.loadCancel != nil {
		s.loadCancel()
	}
	s.renderSeq.Add(1) // invalidate in-flight renders
	s.retireDocLocked()
	s.documentID = documentID
	s.currentPage = startPage
	s.pageCount = 0
	s.loading = true
	s.errMsg = ""
	s.log = s.deps.Log.With("session_id", s.ID, "document_id", documentID)
	loadCtx, cancel := context.WithCancel(s.ctx)
	s.loadCancel = cancel
	docID := s.documentID
	cred := s.credential
	s.mu.Unlock()

	s.wg.Add(1)
	go s.load(loadCtx, gen, docID, cred)
}

// retireDocLocked detaches the current document and closes it once
// in-flight renders drain. Native parser handles must not be closed
// under an active rasterization.
func (s *Session) retireDocLocked() {
	if s.doc == nil {
		return
	}
	old, renders := s.doc, s.docRenders
	s.doc = nil
	s.docRenders = nil
	go func() {
		renders.Wait()
		old.Close()
	}()
}

// Next advances one page, clamped at the upper bound.
func (s *Session) Next() State {
	return s.navigate(func(cur int) int { return cur + 1 })
}

// Prev goes back one page, clamped at the lower bound.
func (s *Session) Prev() State {
	return s.navigate(func(cur int) int { return cur - 1 })
}

// JumpTo moves to the requested page, clamped into range.
func (s *Session) JumpTo(n int) State {
	return s.navigate(func(int) int { return n })
}

func (s *Session) navigate(f func(cur int) int) State {
	s.touch()
	s.mu.Lock()
	if s.doc == nil {
		// Not loaded yet: currentPage still holds the supplied start
		// page unclamped, leave it alone.
		st := s.stateLocked()
		s.mu.Unlock()
		return st
	}
	requested := f(s.currentPage)
	clamped := clamp(requested, s.pageCount)
	changed := clamped != s.currentPage
	s.currentPage = clamped
	if changed {
		s.scheduleRenderLocked()
	}
	st := s.stateLocked()
	s.mu.Unlock()

	if changed {
		s.saveProgress(st.CurrentPage)
	}
	return st
}

// CommitPage is the explicit commit trigger (input blur or confirm
// key): it jumps to the page and always fires a progress save, even
// when the page did not change.
func (s *Session) CommitPage(n int) State {
	s.touch()
	s.mu.Lock()
	if s.doc == nil {
		st := s.stateLocked()
		s.mu.Unlock()
		return st
	}
	clamped := clamp(n, s.pageCount)
	if clamped != s.currentPage {
		s.currentPage = clamped
		s.scheduleRenderLocked()
	}
	st := s.stateLocked()
	s.mu.Unlock()

	s.saveProgress(st.CurrentPage)
	return st
}

// saveProgress fires an independent, non-blocking write of the last
// viewed page. Failures are logged and never surface to navigation.
func (s *Session) saveProgress(lastPage int) {
	s.mu.Lock()
	readingID := s.readingID
	cred := s.credential
	s.mu.Unlock()
	if readingID == "" {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
		defer cancel()
		if err := s.deps.Progress.Save(ctx, readingID, lastPage, cred); err != nil {
			s.hook.Emit(obs.EventProgressFailed, obs.String("reading_id", readingID), obs.Int("last_page", lastPage), obs.Err(err))
			s.log.Warn("progress save failed", "reading_id", readingID, "last_page", lastPage, "error", err)
			return
		}
		s.hook.Emit(obs.EventProgressSaved, obs.String("reading_id", readingID), obs.Int("last_page", lastPage))
	}()
}

// UpdateViewport reports a new container measurement.
func (s *Session) UpdateViewport(width int, pixelRatio float64) State {
	s.touch()
	s.mu.Lock()
	if pixelRatio > 0 && pixelRatio != s.pixelRatio {
		s.pixelRatio = pixelRatio
		s.scheduleRenderLocked()
	}
	s.mu.Unlock()

	s.sizer.Update(width)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// onWidth receives coalesced widths from the sizer.
func (s *Session) onWidth(width int) {
	s.mu.Lock()
	s.width = width
	s.scheduleRenderLocked()
	s.mu.Unlock()
}

// scheduleRenderLocked starts an asynchronous render of the current
// page. The newest request supersedes older ones: each bump of
// renderSeq invalidates every earlier in-flight render, and a stale
// completion is discarded without touching the surface.
func (s *Session) scheduleRenderLocked() {
	if s.doc == nil {
		return
	}
	seq := s.renderSeq.Add(1)
	doc := s.doc
	renders := s.docRenders
	page := s.currentPage
	width := s.width
	ratio := s.pixelRatio

	renders.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer renders.Done()

		s.hook.Emit(obs.EventRenderStarted, obs.Int("page", page), obs.Uint64("seq", seq))
		frame, err := s.renderer.Render(s.ctx, doc, page, width, ratio)
		if err != nil {
			s.hook.Emit(obs.EventRenderFailed, obs.Int("page", page), obs.Err(err))
			s.log.Warn("render failed, keeping last frame", "page", page, "error", err)
			return
		}

		// Check-and-install must be one critical section: two renders
		// may both pass a bare staleness check and then commit in the
		// wrong order.
		s.mu.Lock()
		stale := seq != s.renderSeq.Load() || page != s.currentPage
		if !stale {
			s.renderer.Commit(frame)
		}
		s.mu.Unlock()
		if stale {
			s.hook.Emit(obs.EventRenderDiscarded, obs.Int("page", page), obs.Uint64("seq", seq))
			return
		}

		s.hook.Emit(obs.EventRenderApplied, obs.Int("page", page), obs.Uint64("seq", seq),
			obs.Int("pixel_width", frame.PixelWidth), obs.Int("pixel_height", frame.PixelHeight))
	}()
}

// Frame returns the last committed frame, or nil before the first
// successful render.
func (s *Session) Frame() *render.Frame {
	s.touch()
	return s.renderer.Frame()
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.touch()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		SessionID:      s.ID,
		DocumentID:     s.documentID,
		ReadingID:      s.readingID,
		CurrentPage:    s.currentPage,
		PageCount:      s.pageCount,
		ContainerWidth: s.width,
		PixelRatio:     s.pixelRatio,
		Loading:        s.loading,
		Error:          s.errMsg,
	}
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns the time of the last client interaction.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Close cancels in-flight work and releases the document. Safe to
// call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.sizer.Stop()
		s.wg.Wait()
		s.mu.Lock()
		s.retireDocLocked()
		s.mu.Unlock()
	})
}
