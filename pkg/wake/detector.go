package wake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charice-projects/omnivoice/pkg/audio/fbank"
	"github.com/charice-projects/omnivoice/pkg/audio/pcm"
	"github.com/charice-projects/omnivoice/pkg/buffer"
)

// FrameSource yields fixed-length PCM frames from the microphone.
type FrameSource interface {
	Format() pcm.Format
	ReadFrame(ctx context.Context) (*pcm.Frame, error)
}

// Config configures a Detector.
type Config struct {
	// WakeWord is the phrase reported on detections.
	WakeWord string
	// Sensitivity is the detection threshold, clamped to
	// [MinSensitivity, MaxSensitivity]. Zero means DefaultSensitivity.
	Sensitivity float64
	// Cooldown suppresses detections after an accepted one. Zero means
	// DefaultCooldown.
	Cooldown time.Duration
	// Window is the classified audio span. Zero means DefaultWindow.
	Window time.Duration
	// Hop is the stride between classified windows. Zero means DefaultHop.
	Hop time.Duration
	// Format is the PCM format. The zero value is pcm.L16Mono16K.
	Format pcm.Format
}

func (c *Config) fill() {
	if c.Sensitivity == 0 {
		c.Sensitivity = DefaultSensitivity
	}
	c.Sensitivity = min(max(c.Sensitivity, MinSensitivity), MaxSensitivity)
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Hop <= 0 {
		c.Hop = DefaultHop
	}
}

// Detector is the always-on wake-word detector.
type Detector struct {
	cfg        Config
	classifier Classifier
	extractor  *fbank.Extractor
	now        func() time.Time

	state   atomic.Int32
	busy    atomic.Bool
	dropped atomic.Uint64
	events  chan Event

	mu       sync.Mutex
	lastWake time.Time
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// NewDetector creates a detector. The classifier must come from a loaded
// model artifact; pass nil to get an immediate ErrModelLoad from Start,
// which keeps a broken model from silently disabling detection.
func NewDetector(cfg Config, classifier Classifier) *Detector {
	cfg.fill()
	return &Detector{
		cfg:        cfg,
		classifier: classifier,
		extractor:  fbank.New(fbank.DefaultConfig()),
		now:        time.Now,
		events:     make(chan Event, 32),
	}
}

// Events is the detector's output stream. The channel is never closed;
// consumers stop reading after Stop.
func (d *Detector) Events() <-chan Event {
	return d.events
}

// State returns the current lifecycle state.
func (d *Detector) State() State {
	return State(d.state.Load())
}

// DroppedWindows returns the running count of windows skipped because a
// classification was still in flight.
func (d *Detector) DroppedWindows() uint64 {
	return d.dropped.Load()
}

// Suppress restarts the cooldown window as if a detection just fired.
// The command pipeline calls this around spoken feedback so the device's
// own speaker output cannot retrigger the wake word.
func (d *Detector) Suppress() {
	d.mu.Lock()
	d.lastWake = d.now()
	d.mu.Unlock()
}

// Start begins continuous sampling from the source.
func (d *Detector) Start(ctx context.Context, src FrameSource) error {
	if d.classifier == nil {
		return fmt.Errorf("%w: no classifier", ErrModelLoad)
	}
	if !d.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.mu.Lock()
	d.cancel = cancel
	d.loopDone = done
	d.mu.Unlock()

	d.state.Store(int32(StateListening))
	go d.sampleLoop(ctx, src, done)
	return nil
}

// Stop halts sampling and releases the input. In-flight classification is
// abandoned.
func (d *Detector) Stop() error {
	if State(d.state.Load()) == StateStopped {
		return ErrNotRunning
	}
	d.mu.Lock()
	cancel, done := d.cancel, d.loopDone
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	d.state.Store(int32(StateStopped))
	return nil
}

// sampleLoop drains frames into the sliding window and schedules
// classification. It must never block on inference; when a window falls
// due mid-classification it is skipped and counted.
func (d *Detector) sampleLoop(ctx context.Context, src FrameSource, done chan struct{}) {
	defer close(done)

	windowSamples := int(d.cfg.Format.SamplesInDuration(d.cfg.Window))
	hopSamples := int(d.cfg.Format.SamplesInDuration(d.cfg.Hop))
	ring := buffer.NewRing[int16](windowSamples)

	sinceHop := 0
	for {
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, io.EOF) {
				// Microphone failure is fatal to the detector; the caller
				// decides whether to restart.
				d.emit(Event{Kind: EventError, Err: fmt.Errorf("wake: audio source: %w", err)})
			}
			return
		}

		ring.Write(frame.Samples)
		sinceHop += len(frame.Samples)
		d.emit(Event{Kind: EventLevel, Level: &LevelEvent{
			RMS:            frame.RMS(),
			DroppedWindows: d.dropped.Load(),
		}})

		if sinceHop < hopSamples || ring.Len() < windowSamples {
			continue
		}
		sinceHop = 0

		if !d.busy.CompareAndSwap(false, true) {
			n := d.dropped.Add(1)
			slog.Warn("wake: window skipped, classification in flight", "dropped", n)
			continue
		}
		d.state.Store(int32(StateProcessing))
		window := ring.Snapshot()
		go d.classify(window)
	}
}

// classify runs feature extraction and inference for one window.
func (d *Detector) classify(samples []int16) {
	defer func() {
		d.busy.Store(false)
		d.state.CompareAndSwap(int32(StateProcessing), int32(StateListening))
	}()

	features := d.extractor.ExtractFromInt16(samples)
	if len(features) == 0 {
		return
	}
	fbank.CMVN(features)

	out, err := d.classifier.Infer(fbank.Flatten(features))
	if err != nil {
		d.emit(Event{Kind: EventError, Err: err})
		return
	}

	conf := wakeScore(out)
	if conf < d.cfg.Sensitivity {
		return
	}

	now := d.now()
	d.mu.Lock()
	if !d.lastWake.IsZero() && now.Sub(d.lastWake) < d.cfg.Cooldown {
		d.mu.Unlock()
		return
	}
	d.lastWake = now
	d.mu.Unlock()

	slog.Info("wake: detected", "word", d.cfg.WakeWord, "confidence", conf)
	d.emit(Event{Kind: EventWake, Wake: &WakeEvent{
		WakeWord:   d.cfg.WakeWord,
		Confidence: conf,
		Timestamp:  now,
	}})
}

// emit never blocks the sampling loop. Level events are droppable; wake
// and error events evict the oldest queued event to make room.
func (d *Detector) emit(ev Event) {
	select {
	case d.events <- ev:
		return
	default:
	}
	if ev.Kind == EventLevel {
		return
	}
	select {
	case <-d.events:
	default:
	}
	select {
	case d.events <- ev:
	default:
	}
}
