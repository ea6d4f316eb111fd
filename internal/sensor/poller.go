package sensor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/gaslog/internal/state"
)

// Defaults applied by NewPoller for zero Options fields.
const (
	DefaultInterval     = time.Second
	DefaultSettle       = 100 * time.Millisecond
	DefaultReadTimeout  = time.Second
	DefaultPublishQueue = 16
)

// Poll result labels passed to Observer.PollResult.
const (
	ResultOK        = "ok"
	ResultTimeout   = "timeout"
	ResultEmpty     = "empty"
	ResultLinkError = "link_error"
)

// Recorder receives every sample; it decides whether a row is written.
type Recorder interface {
	Append(smp state.Sample) (bool, error)
}

// Publisher forwards samples to an external sink.
type Publisher interface {
	Publish(ctx context.Context, smp state.Sample) error
}

// Observer is notified of the outcome of every poll cycle.
type Observer interface {
	PollResult(result string)
}

// PublishDropped is reported to an Observer that also implements
// PublishResult when a sample finds the publish queue full.
const PublishDropped = "dropped"

type publishObserver interface {
	PublishResult(result string)
}

// Options configures a Poller.
type Options struct {
	Interval    time.Duration
	Settle      time.Duration // pause between query and read; 0 disables it
	ReadTimeout time.Duration
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Observer    Observer  // optional
	Publisher   Publisher // optional
	// PublishQueue bounds the samples waiting for the publisher; further
	// samples are dropped until it catches up.
	PublishQueue int
}

// Poller queries the sensor on a fixed interval and feeds the readings to
// the shared store and the recorder.
type Poller struct {
	link     Link
	store    *state.Store
	recorder Recorder

	interval    time.Duration
	settle      time.Duration
	readTimeout time.Duration
	clock       clockwork.Clock
	logger      *slog.Logger
	obs         Observer
	pub         Publisher
	queue       chan state.Sample
}

// NewPoller returns a Poller reading from link.
func NewPoller(link Link, store *state.Store, recorder Recorder, opts Options) *Poller {
	p := &Poller{
		link:        link,
		store:       store,
		recorder:    recorder,
		interval:    opts.Interval,
		settle:      opts.Settle,
		readTimeout: opts.ReadTimeout,
		clock:       opts.Clock,
		logger:      opts.Logger,
		obs:         opts.Observer,
		pub:         opts.Publisher,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.settle < 0 {
		p.settle = 0
	}
	if p.readTimeout <= 0 {
		p.readTimeout = DefaultReadTimeout
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.pub != nil {
		size := opts.PublishQueue
		if size <= 0 {
			size = DefaultPublishQueue
		}
		p.queue = make(chan state.Sample, size)
	}
	return p
}

// Run polls until ctx is cancelled. Cycle errors are logged and never end
// the loop. With a publisher configured, samples are published from a
// second goroutine so a slow sink never delays a cycle.
func (p *Poller) Run(ctx context.Context) error {
	if p.pub == nil {
		return p.poll(ctx)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.poll(gctx) })
	g.Go(func() error { return p.drain(gctx) })
	return g.Wait()
}

func (p *Poller) poll(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Polling sensor", "interval", p.interval)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := p.Cycle(ctx); err != nil && ctx.Err() == nil {
			p.logCycleError(err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

// Cycle performs one query/read exchange. A non-empty reply becomes the
// latest sample, is handed to the recorder and is queued for the publisher.
func (p *Poller) Cycle(ctx context.Context) (state.Sample, error) {
	value, err := Query(ctx, p.link, p.clock, p.settle, p.readTimeout)
	if err != nil {
		if ctx.Err() == nil {
			p.observe(classify(err))
		}
		return state.Sample{}, err
	}
	p.observe(ResultOK)

	smp := state.Sample{Timestamp: p.clock.Now(), Value: value}
	p.store.SetLatestSample(smp)

	if _, err := p.recorder.Append(smp); err != nil {
		p.logger.Error("Failed to append reading", "error", err)
	}
	p.enqueue(smp)
	return smp, nil
}

func (p *Poller) enqueue(smp state.Sample) {
	if p.queue == nil {
		return
	}
	select {
	case p.queue <- smp:
	default:
		p.logger.Debug("Publish queue full, dropping reading", "value", smp.Value)
		if o, ok := p.obs.(publishObserver); ok {
			o.PublishResult(PublishDropped)
		}
	}
}

// drain hands queued samples to the publisher until ctx is cancelled.
// Samples still queued at that point are discarded.
func (p *Poller) drain(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case smp := <-p.queue:
			if err := p.pub.Publish(ctx, smp); err != nil && ctx.Err() == nil {
				p.logger.Warn("Failed to publish reading", "error", err)
			}
		}
	}
}

// Query sends the reading command over link, waits settle on clock and
// returns the reply with trailing line terminators removed.
func Query(ctx context.Context, link Link, clock clockwork.Clock, settle, readTimeout time.Duration) (string, error) {
	if err := link.Send(QueryCommand); err != nil {
		return "", err
	}
	if settle > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-clock.After(settle):
		}
	}
	reply, err := link.ReadReply(readTimeout)
	if err != nil {
		return "", err
	}
	value := strings.TrimRight(reply, "\r\n")
	if value == "" {
		return "", ErrEmptyReply
	}
	return value, nil
}

func (p *Poller) observe(result string) {
	if p.obs != nil {
		p.obs.PollResult(result)
	}
}

func (p *Poller) logCycleError(err error) {
	if errors.Is(err, ErrTimeout) {
		p.logger.Debug("Sensor did not answer", "timeout", p.readTimeout)
		return
	}
	p.logger.Warn("Skipping poll cycle", "error", err)
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return ResultTimeout
	case errors.Is(err, ErrEmptyReply):
		return ResultEmpty
	}
	return ResultLinkError
}
