package finance

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// RECOMPUTE SERVICE
// =============================================================================
// The rendering layer never patches state incrementally: any change under a
// watched path triggers a full reload and re-aggregation, and the complete
// view is handed to the Renderer. Deliveries are serialized on one
// goroutine so renderers never see two views racing.

// Renderer receives each freshly aggregated view.
type Renderer interface {
	Render(view billing.View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(view billing.View)

func (f RendererFunc) Render(view billing.View) { f(view) }

// Watcher keeps one user's view current for a displayed month.
type Watcher struct {
	svc      *Service
	log      zerolog.Logger
	renderer Renderer

	mu      sync.Mutex
	month   billing.Month
	cancels []func()
	work    chan billing.Month
	done    chan struct{}
}

// NewWatcher starts the delivery goroutine; call Close to stop it.
func NewWatcher(svc *Service, renderer Renderer) *Watcher {
	w := &Watcher{
		svc:      svc,
		log:      svc.log.With().Str("component", "watcher").Logger(),
		renderer: renderer,
		work:     make(chan billing.Month, 16),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// SetMonth switches the displayed month: tears down the previous month's
// subscriptions, subscribes to the new month's paths, and schedules an
// initial recompute.
func (w *Watcher) SetMonth(month billing.Month) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, cancel := range w.cancels {
		cancel()
	}
	w.cancels = nil
	w.month = month

	// Card config plus every data tree feeding the ledger. Subscriptions on
	// the full expense/fixed trees, not just the displayed month: a payment
	// marker written months back changes this month's rollover.
	paths := []string{
		w.svc.cardsPath(),
		w.svc.expensesPath(),
		w.svc.fixedPath(),
		w.svc.installmentsPath(),
		w.svc.pendingPath(),
	}
	for _, path := range paths {
		w.cancels = append(w.cancels, w.svc.store.Subscribe(path, func(json.RawMessage) {
			w.schedule(month)
		}))
	}
}

// Close stops deliveries and releases all subscriptions.
func (w *Watcher) Close() {
	w.mu.Lock()
	for _, cancel := range w.cancels {
		cancel()
	}
	w.cancels = nil
	w.mu.Unlock()
	close(w.done)
}

func (w *Watcher) schedule(month billing.Month) {
	select {
	case w.work <- month:
	default:
		// A recompute is already queued; it will read fresh state anyway.
	}
}

func (w *Watcher) run() {
	for {
		select {
		case month := <-w.work:
			w.mu.Lock()
			current := w.month
			w.mu.Unlock()
			if month != current {
				continue // stale trigger from a torn-down month
			}
			view, err := w.svc.View(context.Background(), month)
			if err != nil {
				w.log.Error().Err(err).Str("month", month.Key()).Msg("recompute failed")
				continue
			}
			// Re-check under the lock and deliver while holding it, so a
			// SetMonth racing the recompute cannot slip a stale view out
			// between the check and the render. Renderers must not call
			// back into the watcher.
			w.mu.Lock()
			if month == w.month {
				w.renderer.Render(view)
			}
			w.mu.Unlock()
		case <-w.done:
			return
		}
	}
}
