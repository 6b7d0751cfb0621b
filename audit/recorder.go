package audit

import (
	"context"
	"sync"
	"time"

	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/metrics"

	"go.uber.org/zap"
)

/* ========================================================================
 * Recorder - never-fail audit emission
 * ========================================================================
 * Wraps the ledger for callers whose operations must not be blocked by
 * an audit failure: a gap in the trail is an incident, not an outage.
 * Failed appends are logged, counted, escalated through the alert
 * channel, and retried asynchronously a bounded number of times.
 * ======================================================================== */

// Alerter is the out-of-band escalation channel for audit failures.
type Alerter interface {
	Alert(ctx context.Context, subject string, body []byte) error
}

const (
	retryQueueSize = 256
	retryInterval  = 30 * time.Second
	maxRetries     = 5
	alertTimeout   = 5 * time.Second
)

type retryItem struct {
	entry    *Entry
	attempts int
}

// Recorder emits audit entries without ever failing the caller.
type Recorder struct {
	ledger  *Ledger
	alerter Alerter // nil when no broker is configured
	log     *logger.Logger

	queue chan retryItem
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewRecorder creates a Recorder. alerter may be nil.
func NewRecorder(ledger *Ledger, alerter Alerter, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Recorder{
		ledger:  ledger,
		alerter: alerter,
		log:     log,
		queue:   make(chan retryItem, retryQueueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the background retry loop.
func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.retryLoop()
}

// Stop drains the retry loop.
func (r *Recorder) Stop() {
	r.once.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

// Record appends an entry. It never returns an error: failures are
// logged, counted, alerted and queued for retry.
func (r *Recorder) Record(ctx context.Context, e *Entry) {
	if e == nil {
		return
	}

	if err := r.ledger.Append(ctx, e); err != nil {
		r.handleFailure(e, err)
	}
}

func (r *Recorder) handleFailure(e *Entry, err error) {
	metrics.AuditAppendFailureTotal.Inc()
	r.log.Error("audit append failed",
		zap.String("operation", e.Operation),
		zap.String("correlation_id", e.CorrelationID),
		zap.Error(err),
	)

	r.escalate(e, err)

	select {
	case r.queue <- retryItem{entry: e, attempts: 1}:
	default:
		r.log.Error("audit retry queue full, entry dropped",
			zap.String("operation", e.Operation),
			zap.String("correlation_id", e.CorrelationID),
		)
	}
}

// escalate pushes the failure to the alert channel without blocking the
// request path.
func (r *Recorder) escalate(e *Entry, cause error) {
	if r.alerter == nil {
		return
	}

	body := []byte(Snapshot(map[string]any{
		"operation":      e.Operation,
		"correlation_id": e.CorrelationID,
		"operator_id":    e.OperatorID,
		"tenant_id":      e.TenantID,
		"error":          cause.Error(),
	}))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()
		if err := r.alerter.Alert(ctx, "audit-append-failure", body); err != nil {
			metrics.AuditAlertTotal.WithLabelValues("failed").Inc()
			r.log.Error("audit failure alert not delivered", zap.Error(err))
			return
		}
		metrics.AuditAlertTotal.WithLabelValues("sent").Inc()
	}()
}

func (r *Recorder) retryLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			r.drain()
			return
		case <-ticker.C:
			r.flushOnce()
		}
	}
}

// flushOnce retries everything currently queued, re-queueing what still
// fails until maxRetries.
func (r *Recorder) flushOnce() {
	for i := len(r.queue); i > 0; i-- {
		select {
		case item := <-r.queue:
			r.retry(item)
		default:
			return
		}
	}
}

func (r *Recorder) retry(item retryItem) {
	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	err := r.ledger.Append(ctx, item.entry)
	cancel()
	if err == nil {
		r.log.Info("audit entry recovered on retry",
			zap.String("operation", item.entry.Operation),
			zap.Int("attempts", item.attempts),
		)
		return
	}

	item.attempts++
	if item.attempts > maxRetries {
		r.log.Error("audit entry dropped after retries",
			zap.String("operation", item.entry.Operation),
			zap.String("correlation_id", item.entry.CorrelationID),
		)
		return
	}

	select {
	case r.queue <- item:
	default:
	}
}

// drain makes a final synchronous attempt at shutdown.
func (r *Recorder) drain() {
	for {
		select {
		case item := <-r.queue:
			r.retry(item)
		default:
			return
		}
	}
}
