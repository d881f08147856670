package service

import (
	"context"
	"errors"
	"sync"

	"pdf-workbench/internal/domain"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultThumbnailWidth   = 160
	DefaultThumbnailWorkers = 4
)

var errSuperseded = errors.New("thumbnail pass superseded")

// Thumbnail is the PNG preview of one page.
type Thumbnail struct {
	Page int    `json:"page"`
	PNG  []byte `json:"png"`
}

// PageCheck reports whether a page may still be rendered. It returns a
// stale error (see domain.IsStale) once the document has changed.
type PageCheck func(page int) error

// PreviewService renders page thumbnails, in the background or on demand.
type PreviewService struct {
	renderer domain.Renderer
	logger   domain.Logger
	width    int
	workers  int

	mu    sync.Mutex
	gen   map[string]uint64
	cache map[string][]Thumbnail
	wg    sync.WaitGroup
}

// NewPreviewService creates a preview service rendering thumbnails width
// pixels wide with at most workers pages in flight.
func NewPreviewService(renderer domain.Renderer, width, workers int, logger domain.Logger) *PreviewService {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	if workers <= 0 {
		workers = DefaultThumbnailWorkers
	}
	return &PreviewService{
		renderer: renderer,
		logger:   logger,
		width:    width,
		workers:  workers,
		gen:      map[string]uint64{},
		cache:    map[string][]Thumbnail{},
	}
}

// Render renders every page of data. check runs before each page.
func (p *PreviewService) Render(ctx context.Context, data []byte, check PageCheck) ([]Thumbnail, error) {
	n, err := p.renderer.PageCount(data)
	if err != nil {
		return nil, err
	}

	thumbs := make([]Thumbnail, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if check != nil {
				if err := check(i); err != nil {
					return err
				}
			}
			img, err := p.renderer.RenderPNG(data, i, p.width)
			if err != nil {
				return err
			}
			thumbs[i] = Thumbnail{Page: i, PNG: img}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return thumbs, nil
}

// Trigger starts a background pass for a session, superseding any pass
// still running for it. A pass that goes stale stops without reporting an
// error; a finished pass replaces the cached thumbnails.
func (p *PreviewService) Trigger(sessionID string, data []byte, check PageCheck) {
	p.mu.Lock()
	p.gen[sessionID]++
	gen := p.gen[sessionID]
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		thumbs, err := p.Render(context.Background(), data, func(page int) error {
			if !p.current(sessionID, gen) {
				return errSuperseded
			}
			if check != nil {
				return check(page)
			}
			return nil
		})
		if err != nil {
			if domain.IsStale(err) || errors.Is(err, errSuperseded) {
				p.logger.Debug("Thumbnail pass abandoned", "session", sessionID)
				return
			}
			p.logger.Error("Thumbnail rendering failed", err, "session", sessionID)
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.gen[sessionID] == gen {
			p.cache[sessionID] = thumbs
		}
	}()
}

func (p *PreviewService) current(sessionID string, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen[sessionID] == gen
}

// Cached returns the thumbnails of the last completed pass.
func (p *PreviewService) Cached(sessionID string) ([]Thumbnail, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	thumbs, ok := p.cache[sessionID]
	return thumbs, ok
}

// Forget drops cached thumbnails and cancels running passes of a session.
func (p *PreviewService) Forget(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen[sessionID]++
	delete(p.cache, sessionID)
}

// Wait blocks until all background passes have ended.
func (p *PreviewService) Wait() {
	p.wg.Wait()
}
