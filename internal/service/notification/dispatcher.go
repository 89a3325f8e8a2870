package notification

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/push"
	"github.com/jwalitptl/emergency-notifier/pkg/circuitbreaker"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/metrics"
)

type DispatcherConfig struct {
	// BatchSize is clamped to push.MaxBatchSize.
	BatchSize int
	// MaxConcurrentBatches bounds in-flight batches; 1 submits sequentially.
	MaxConcurrentBatches int
	// BatchesPerSecond limits submission rate when positive.
	BatchesPerSecond float64
	RateBurst        int
}

// Dispatcher splits deliveries into batches and submits them to the push
// client. It never retries and never touches the roster.
type Dispatcher struct {
	client  push.Client
	config  DispatcherConfig
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(
	client push.Client,
	config DispatcherConfig,
	breaker *circuitbreaker.CircuitBreaker,
	log *logger.Logger,
	m *metrics.Metrics,
) *Dispatcher {
	if config.BatchSize <= 0 || config.BatchSize > push.MaxBatchSize {
		config.BatchSize = push.MaxBatchSize
	}
	if config.MaxConcurrentBatches <= 0 {
		config.MaxConcurrentBatches = 1
	}

	d := &Dispatcher{
		client:  client,
		config:  config,
		breaker: breaker,
		logger:  log,
		metrics: m,
	}
	if config.BatchesPerSecond > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(config.BatchesPerSecond), burst)
	}
	return d
}

type bounds struct {
	start, end int
}

func partition(n, size int) []bounds {
	if n == 0 {
		return nil
	}
	out := make([]bounds, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, bounds{start, end})
	}
	return out
}

// Batches splits deliveries into consecutive slices of at most size.
func Batches(deliveries []model.Delivery, size int) [][]model.Delivery {
	parts := partition(len(deliveries), size)
	out := make([][]model.Delivery, len(parts))
	for i, p := range parts {
		out[i] = deliveries[p.start:p.end]
	}
	return out
}

// Dispatch submits every delivery once and returns one result per input,
// in input order.
func (d *Dispatcher) Dispatch(ctx context.Context, deliveries []model.Delivery) []model.DeliveryResult {
	results := make([]model.DeliveryResult, len(deliveries))

	var g errgroup.Group
	g.SetLimit(d.config.MaxConcurrentBatches)
	for _, p := range partition(len(deliveries), d.config.BatchSize) {
		batch := deliveries[p.start:p.end]
		out := results[p.start:p.end]
		g.Go(func() error {
			d.sendBatch(ctx, batch, out)
			return nil
		})
	}
	_ = g.Wait()

	for i := range results {
		d.record(deliveries[i], results[i])
	}
	return results
}

func (d *Dispatcher) sendBatch(ctx context.Context, batch []model.Delivery, out []model.DeliveryResult) {
	log := logger.FromContext(ctx, d.logger)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			failBatch(batch, out, err)
			return
		}
	}

	d.metrics.BatchesSubmitted.Inc()
	d.metrics.BatchSize.Observe(float64(len(batch)))

	var sent []model.DeliveryResult
	send := func() error {
		res, err := d.client.SendEach(ctx, batch)
		if err != nil {
			return err
		}
		if len(res) != len(batch) {
			return fmt.Errorf("got %d results for batch of %d", len(res), len(batch))
		}
		sent = res
		return nil
	}

	var err error
	if d.breaker != nil {
		err = d.breaker.Execute(send)
	} else {
		err = send()
	}
	if err != nil {
		d.metrics.BatchFailures.Inc()
		log.Error(err, "Batch submission failed", "batch_size", len(batch))
		failBatch(batch, out, err)
		return
	}

	for i := range batch {
		r := sent[i]
		r.UserID = batch[i].UserID
		r.Token = batch[i].Token
		if !r.Success && r.ErrorCode == model.ErrorCodeNone {
			r.ErrorCode = model.ErrorCodeOther
		}
		out[i] = r
	}
}

// failBatch marks every delivery in a batch as transiently failed.
func failBatch(batch []model.Delivery, out []model.DeliveryResult, err error) {
	for i, dl := range batch {
		out[i] = model.DeliveryResult{
			UserID:    dl.UserID,
			Token:     dl.Token,
			Success:   false,
			ErrorCode: model.ErrorCodeOther,
			Err:       err,
		}
	}
}

func (d *Dispatcher) record(dl model.Delivery, r model.DeliveryResult) {
	code := "success"
	if !r.Success {
		code = string(r.ErrorCode)
	}
	d.metrics.Deliveries.WithLabelValues(dl.Payload.Data["type"], code).Inc()
}
