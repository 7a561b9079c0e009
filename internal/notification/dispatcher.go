package notification

import (
	"context"
	"sync"
	"time"

	"github.com/ferrolab/certline/internal/observability/metrics"
	"github.com/ferrolab/certline/internal/providers/telegram"
	"go.uber.org/zap"
)

const sendTimeout = 15 * time.Second

// Dispatcher delivers workflow events through the injected transport.
// Delivery is best-effort: one attempt, failures are logged and dropped.
type Dispatcher struct {
	log      *zap.Logger
	provider telegram.Provider
	metrics  *metrics.Metrics

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(log *zap.Logger, provider telegram.Provider, m *metrics.Metrics) *Dispatcher {
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		log:      log.Named("notification.dispatcher"),
		provider: provider,
		metrics:  m,
		base:     base,
		cancel:   cancel,
	}
}

// Dispatch sends the event without blocking the caller. The send is bound to
// the dispatcher's own context, not the request context, so an HTTP response
// returning early does not cancel delivery.
func (d *Dispatcher) Dispatch(e Event) {
	if e == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(d.base, sendTimeout)
		defer cancel()
		if err := d.provider.Send(ctx, e.Render()); err != nil {
			d.log.Warn("notification send failed",
				zap.String("event", eventName(e)),
				zap.Error(err),
			)
			d.metrics.RecordNotification(eventName(e), "failed")
			return
		}
		d.metrics.RecordNotification(eventName(e), "sent")
	}()
}

// Close stops new sends from lingering and waits for in-flight ones.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

func eventName(e Event) string {
	switch e.(type) {
	case QCApproved:
		return "qc_approved"
	case QCRejected:
		return "qc_rejected"
	case LabTestFailed:
		return "lab_test_failed"
	case FinalAcceptance:
		return "final_acceptance"
	case StatusChanged:
		return "status_changed"
	default:
		return "unknown"
	}
}
