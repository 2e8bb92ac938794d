package feedback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingSpeaker records delivery order and detects overlapping
// playback.
type recordingSpeaker struct {
	mu       sync.Mutex
	spoken   []string
	tones    []Tone
	inFlight atomic.Int32
	overlap  atomic.Bool
	delay    time.Duration
	gate     chan struct{}
}

func (s *recordingSpeaker) Speak(ctx context.Context, text, id string) error {
	if s.inFlight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.inFlight.Add(-1)

	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	return nil
}

func (s *recordingSpeaker) PlayTone(ctx context.Context, tone Tone) error {
	s.mu.Lock()
	s.tones = append(s.tones, tone)
	s.mu.Unlock()
	return nil
}

func (s *recordingSpeaker) spokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spoken))
	copy(out, s.spoken)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestAnnouncer_PriorityOrderTiesFIFO(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sp := &recordingSpeaker{gate: make(chan struct{})}
	a := NewAnnouncer(sp)
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The first request parks on the gate so the rest queue up behind it.
	if _, err := a.Announce(Request{Message: "first", Type: TypeInfo, Speak: true}); err != nil {
		t.Fatalf("Announce: %v", err)
	}
	waitFor(t, time.Second, func() bool { _, ok := a.Current(); return ok })

	announce := func(msg string, typ Type) {
		t.Helper()
		if _, err := a.Announce(Request{Message: msg, Type: typ, Speak: true}); err != nil {
			t.Fatalf("Announce %s: %v", msg, err)
		}
	}
	announce("low-a", TypeInfo)      // priority 3
	announce("high", TypeEmergency)  // priority 10
	announce("mid", TypeError)       // priority 7
	announce("low-b", TypeInfo)      // priority 3, after low-a
	announce("confirm", TypeConfirm) // priority 8

	close(sp.gate)
	waitFor(t, 2*time.Second, func() bool { return len(sp.spokenTexts()) == 6 })

	want := []string{"first", "high", "confirm", "mid", "low-a", "low-b"}
	got := sp.spokenTexts()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivery order = %v, want %v", got, want)
		}
	}
	if sp.overlap.Load() {
		t.Error("two deliveries overlapped")
	}
}

func TestAnnouncer_NeverTwoInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sp := &recordingSpeaker{delay: 5 * time.Millisecond}
	a := NewAnnouncer(sp)
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Announce(Request{Message: "x", Type: TypeInfo, Speak: true})
		}()
	}
	wg.Wait()

	waitFor(t, 5*time.Second, func() bool { return len(sp.spokenTexts()) == 20 })
	if sp.overlap.Load() {
		t.Error("concurrent announcements overlapped in delivery")
	}
}

func TestAnnouncer_StopCurrentKeepsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sp := &recordingSpeaker{gate: make(chan struct{})}
	a := NewAnnouncer(sp)
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	a.Announce(Request{Message: "stuck", Type: TypeInfo, Speak: true})
	waitFor(t, time.Second, func() bool { _, ok := a.Current(); return ok })
	a.Announce(Request{Message: "next", Type: TypeInfo, Speak: true})

	a.StopCurrent()
	close(sp.gate)

	waitFor(t, time.Second, func() bool {
		got := sp.spokenTexts()
		return len(got) == 1 && got[0] == "next"
	})
}

func TestAnnouncer_ClearQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sp := &recordingSpeaker{gate: make(chan struct{})}
	a := NewAnnouncer(sp)
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	a.Announce(Request{Message: "stuck", Type: TypeInfo, Speak: true})
	waitFor(t, time.Second, func() bool { _, ok := a.Current(); return ok })
	a.Announce(Request{Message: "pending-1", Type: TypeInfo, Speak: true})
	a.Announce(Request{Message: "pending-2", Type: TypeError, Speak: true})

	a.ClearQueue()
	close(sp.gate)

	if a.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", a.Pending())
	}
	time.Sleep(20 * time.Millisecond)
	if got := sp.spokenTexts(); len(got) != 0 {
		t.Errorf("spoken after ClearQueue: %v", got)
	}
}

func TestAnnouncer_TonePrecedesSpeech(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sp := &recordingSpeaker{}
	a := NewAnnouncer(sp)
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := a.Say("done", TypeSuccess); err != nil {
		t.Fatalf("Say: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(sp.spokenTexts()) == 1 })

	sp.mu.Lock()
	defer sp.mu.Unlock()
	if len(sp.tones) != 1 || sp.tones[0] != ToneChime {
		t.Errorf("tones = %v, want [chime]", sp.tones)
	}
}

func TestAnnouncer_NotRunning(t *testing.T) {
	a := NewAnnouncer(&recordingSpeaker{})
	if _, err := a.Announce(Request{Message: "x"}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("err = %v, want ErrNotRunning", err)
	}
}

func TestAnnouncer_AssignsIDAndPriority(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := NewAnnouncer(&recordingSpeaker{})
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	id, err := a.Announce(Request{Message: "x", Type: TypeEmergency})
	if err != nil {
		t.Fatalf("Announce: %v", err)
	}
	if id == "" {
		t.Error("no id assigned")
	}
}

func TestType_DefaultsMonotone(t *testing.T) {
	types := []Type{TypeInfo, TypeSuccess, TypeWarning, TypeError, TypeConfirm, TypeEmergency}
	for i := 1; i < len(types); i++ {
		if types[i].DefaultPriority() <= types[i-1].DefaultPriority() {
			t.Errorf("%s priority %d not above %s %d",
				types[i], types[i].DefaultPriority(), types[i-1], types[i-1].DefaultPriority())
		}
	}
	if TypeEmergency.Tone() != ToneSiren {
		t.Errorf("emergency tone = %q", TypeEmergency.Tone())
	}
}

func TestMux_Route(t *testing.T) {
	m := NewMux()
	sp := &recordingSpeaker{}
	if err := m.Handle("tts/local", sp); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got, err := m.Speaker("tts/local")
	if err != nil || got != Speaker(sp) {
		t.Errorf("Speaker = (%v, %v)", got, err)
	}
	if _, err := m.Speaker("tts/cloud"); err == nil {
		t.Error("want error for unregistered speaker")
	}
}
