package feedback

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Announcer owns the feedback queue. Exactly one utterance is in flight
// at any time; completion automatically dequeues the next request.
type Announcer struct {
	speaker Speaker

	mu            sync.Mutex
	queue         requestHeap
	seq           uint64
	current       *Request
	cancelCurrent context.CancelFunc
	running       bool

	wake chan struct{}
	done chan struct{}
}

// NewAnnouncer creates an announcer on a speaker.
func NewAnnouncer(speaker Speaker) *Announcer {
	return &Announcer{
		speaker: speaker,
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the delivery loop. It runs until ctx is cancelled.
func (a *Announcer) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.running = true
	a.done = make(chan struct{})
	a.mu.Unlock()

	go a.loop(ctx)
	return nil
}

// Announce enqueues a request and returns its id. An idle announcer
// delivers immediately; otherwise the request waits its priority turn,
// ties served in arrival order.
func (a *Announcer) Announce(req Request) (string, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Priority == 0 {
		req.Priority = req.Type.DefaultPriority()
	}

	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return "", ErrNotRunning
	}
	a.seq++
	heap.Push(&a.queue, &queued{req: req, seq: a.seq})
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return req.ID, nil
}

// Say is shorthand for a spoken request with the type's defaults.
func (a *Announcer) Say(message string, typ Type) (string, error) {
	return a.Announce(Request{Message: message, Type: typ, PlayTone: true, Speak: true})
}

// StopCurrent halts in-flight playback; queued requests are kept.
func (a *Announcer) StopCurrent() {
	a.mu.Lock()
	cancel := a.cancelCurrent
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ClearQueue drops all pending requests and halts in-flight playback.
func (a *Announcer) ClearQueue() {
	a.mu.Lock()
	a.queue = a.queue[:0]
	cancel := a.cancelCurrent
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Pending returns the number of queued requests, excluding the in-flight
// one.
func (a *Announcer) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// Current returns the in-flight request, if any.
func (a *Announcer) Current() (Request, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return Request{}, false
	}
	return *a.current, true
}

// Wait blocks until the loop exits after ctx cancellation.
func (a *Announcer) Wait() {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (a *Announcer) loop(ctx context.Context) {
	defer func() {
		a.mu.Lock()
		a.running = false
		close(a.done)
		a.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.wake:
		}

		for {
			a.mu.Lock()
			if len(a.queue) == 0 {
				a.mu.Unlock()
				break
			}
			item := heap.Pop(&a.queue).(*queued)
			a.mu.Unlock()

			a.play(ctx, item.req)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// play delivers one request: optional tone, then optional speech.
func (a *Announcer) play(ctx context.Context, req Request) {
	var (
		pctx   context.Context
		cancel context.CancelFunc
	)
	if req.Timeout > 0 {
		pctx, cancel = context.WithTimeout(ctx, req.Timeout)
	} else {
		pctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	a.mu.Lock()
	a.current = &req
	a.cancelCurrent = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.current = nil
		a.cancelCurrent = nil
		a.mu.Unlock()
	}()

	if req.PlayTone {
		if tone := req.Type.Tone(); tone != ToneNone {
			if err := a.speaker.PlayTone(pctx, tone); err != nil {
				slog.Warn("feedback: tone failed", "id", req.ID, "tone", tone, "error", err)
				// Speech still gets its chance.
			}
		}
	}
	if req.Speak && req.Message != "" {
		if err := a.speaker.Speak(pctx, req.Message, req.ID); err != nil {
			slog.Warn("feedback: speech failed", "id", req.ID, "error", err)
		}
	}
}

// queued is a heap entry; seq breaks priority ties FIFO.
type queued struct {
	req Request
	seq uint64
}

type requestHeap []*queued

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if h[i].req.Priority != h[j].req.Priority {
		return h[i].req.Priority > h[j].req.Priority
	}
	return h[i].seq < h[j].seq
}

func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *requestHeap) Push(x any) { *h = append(*h, x.(*queued)) }

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
