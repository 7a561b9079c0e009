package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ferrolab/certline/internal/observability/metrics"
	"github.com/ferrolab/certline/internal/providers/telegram"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureProvider struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (p *captureProvider) Send(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, text)
	return p.err
}

func (p *captureProvider) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.sent))
	copy(out, p.sent)
	return out
}

func testRef() LotRef {
	return LotRef{
		ID:         "1001",
		Grade:      "08Х18Н10Т",
		MeltNumber: "П123",
		Supplier:   "Северсталь",
		OrderNo:    "ORD-77",
	}
}

func TestDispatchDelivers(t *testing.T) {
	provider := &captureProvider{}
	d := NewDispatcher(zap.NewNop(), provider, nil)

	d.Dispatch(QCApproved{Lot: testRef()})
	d.Close()

	msgs := provider.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "QC passed")
	assert.Contains(t, msgs[0], "08Х18Н10Т")
	assert.Contains(t, msgs[0], "1001")
}

func TestDispatchSwallowsTransportFailure(t *testing.T) {
	provider := &captureProvider{err: errors.New("bot api unreachable")}
	d := NewDispatcher(zap.NewNop(), provider, nil)

	// Must not panic or surface the error to the caller.
	d.Dispatch(QCRejected{Lot: testRef(), Reasons: []string{"surface cracks"}})
	d.Close()

	require.Len(t, provider.messages(), 1)
}

func TestDispatchNilEventIgnored(t *testing.T) {
	provider := &captureProvider{}
	d := NewDispatcher(zap.NewNop(), provider, nil)

	d.Dispatch(nil)
	d.Close()

	assert.Empty(t, provider.messages())
}

func TestDispatchWithNoOpProvider(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), &telegram.NoOpProvider{}, nil)
	d.Dispatch(FinalAcceptance{Lot: testRef()})
	d.Close()
}

func TestDispatchRecordsOutcomeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	d := NewDispatcher(zap.NewNop(), &captureProvider{}, m)
	d.Dispatch(QCApproved{Lot: testRef()})
	d.Close()

	d = NewDispatcher(zap.NewNop(), &captureProvider{err: errors.New("bot api unreachable")}, m)
	d.Dispatch(QCApproved{Lot: testRef()})
	d.Close()

	families, err := reg.Gather()
	require.NoError(t, err)

	outcomes := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "certline_notifications_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" {
					outcomes[label.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.EqualValues(t, 1, outcomes["sent"])
	assert.EqualValues(t, 1, outcomes["failed"])
}

func TestEventRendering(t *testing.T) {
	ref := testRef()

	rejected := QCRejected{Lot: ref, Reasons: []string{"cracks", "dimension out of tolerance"}}
	assert.Contains(t, rejected.Render(), "cracks; dimension out of tolerance")

	lab := LabTestFailed{Lot: ref, Discrepancies: []string{"carbon above limit"}}
	assert.Contains(t, lab.Render(), "carbon above limit")

	changed := StatusChanged{Lot: ref, From: "RECEIVED", To: "PENDING_QC", Actor: "Иванов"}
	out := changed.Render()
	assert.Contains(t, out, "RECEIVED")
	assert.Contains(t, out, "PENDING_QC")
	assert.Contains(t, out, "Иванов")

	// Optional sections stay out when empty.
	bare := QCRejected{Lot: ref}
	assert.NotContains(t, bare.Render(), "Reasons")
}
