package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charice-projects/omnivoice/pkg/command"
	"github.com/charice-projects/omnivoice/pkg/contacts"
	"github.com/charice-projects/omnivoice/pkg/feedback"
	"github.com/charice-projects/omnivoice/pkg/intent"
	"github.com/charice-projects/omnivoice/pkg/kv"
)

// fakeNotifier records announcements without a speaker behind them.
type fakeNotifier struct {
	mu   sync.Mutex
	reqs []feedback.Request
}

func (n *fakeNotifier) Announce(req feedback.Request) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reqs = append(n.reqs, req)
	return "id", nil
}

func (n *fakeNotifier) messages() []feedback.Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]feedback.Request, len(n.reqs))
	copy(out, n.reqs)
	return out
}

func (n *fakeNotifier) hasMessage(text string) bool {
	for _, r := range n.messages() {
		if r.Message == text {
			return true
		}
	}
	return false
}

type countingSuppressor struct{ calls int }

func (s *countingSuppressor) Suppress() { s.calls++ }

type fixture struct {
	orch     *Orchestrator
	notifier *fakeNotifier
	history  *command.History
	convo    *intent.Context
	executed []command.Request
	mu       sync.Mutex
}

func (f *fixture) executions() []command.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]command.Request, len(f.executed))
	copy(out, f.executed)
	return out
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	rec, err := intent.NewRecognizer(intent.DefaultGrammar())
	if err != nil {
		t.Fatalf("NewRecognizer: %v", err)
	}

	f := &fixture{
		notifier: &fakeNotifier{},
		history:  command.NewHistory(kv.NewMemory(), 50),
		convo:    intent.NewContext(0),
	}

	reg := command.NewRegistry()
	record := func(result string) command.ExecuteFunc {
		return func(_ context.Context, req command.Request) (string, error) {
			f.mu.Lock()
			f.executed = append(f.executed, req)
			f.mu.Unlock()
			return result, nil
		}
	}
	cmds := []*command.Command{
		{
			ID:                   "send_message",
			Intent:               intent.LabelSendMessage,
			TriggerPhrases:       []string{"给{contact}发消息", "发消息给{contact}"},
			Priority:             5,
			RequiresConfirmation: true,
			RequiredEntities:     []string{"contact", "message"},
			ConfirmPrompt:        "确认发送消息给{contact}: {message}",
			Execute:              record("消息已发送"),
		},
		{
			ID:               "search_contact",
			Intent:           intent.LabelSearchContact,
			TriggerPhrases:   []string{"查找联系人{contact}"},
			Priority:         4,
			RequiredEntities: []string{"contact"},
			Execute:          record("找到了"),
		},
		{
			ID:             "emergency_alert",
			Intent:         intent.LabelEmergencyAlert,
			TriggerPhrases: []string{"紧急求助"},
			Priority:       command.MaxPriority,
			Class:          command.ClassEmergency,
			Execute:        record("紧急求助已发出"),
		},
	}
	for _, c := range cmds {
		if err := reg.Register(c); err != nil {
			t.Fatalf("Register %s: %v", c.ID, err)
		}
	}

	dir := contacts.NewMemoryDirectory(
		&contacts.Contact{ID: "1", Name: "张三", Phone: "13800000001"},
	)

	base := []Option{
		WithContext(f.convo),
		WithDirectory(dir),
		WithHistory(f.history),
		WithNotifier(f.notifier),
		WithConfirmTimeout(80 * time.Millisecond),
	}
	f.orch = New(rec, reg, append(base, opts...)...)
	return f
}

// Scenario: 给张三发消息说晚上开会 requires confirmation, and accepting it
// runs the executor with the resolved contact.
func TestOrchestrator_ConfirmAndExecute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	done := make(chan Result, 1)
	go func() {
		res, err := f.orch.Process(ctx, "给张三发消息说晚上开会")
		if err != nil {
			t.Errorf("Process: %v", err)
		}
		done <- res
	}()

	waitState(t, f.orch, StateConfirming)
	if !f.notifier.hasMessage("确认发送消息给张三: 晚上开会") {
		t.Errorf("confirmation prompt missing, got %+v", f.notifier.messages())
	}
	if err := f.orch.Confirm(true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	res := <-done
	if res.Kind != KindExecuted {
		t.Fatalf("Kind = %s, want executed (reason %q, err %v)", res.Kind, res.Reason, res.Err)
	}
	if res.Output != "消息已发送" {
		t.Errorf("Output = %q", res.Output)
	}

	execs := f.executions()
	if len(execs) != 1 {
		t.Fatalf("executor ran %d times, want 1", len(execs))
	}
	req := execs[0]
	if req.Contact == nil || req.Contact.Name != "张三" {
		t.Errorf("Contact = %+v, want 张三 resolved", req.Contact)
	}
	if req.Entities["message"] != "晚上开会" {
		t.Errorf("message entity = %q", req.Entities["message"])
	}

	if v, ok := f.convo.Get(intent.KeyLastCommand); !ok || v != string(intent.LabelSendMessage) {
		t.Errorf("last_command = %q, %v", v, ok)
	}
	if v, _ := f.convo.Get(intent.EntityKeyPrefix + "contact"); v != "张三" {
		t.Errorf("last_contact = %q", v)
	}
	if f.history.Len() != 1 {
		t.Errorf("history len = %d, want 1", f.history.Len())
	}
	if f.orch.State() != StateIdle {
		t.Errorf("final state = %s, want idle", f.orch.State())
	}
}

// An unanswered confirmation cancels the command: executor never invoked,
// no success feedback.
func TestOrchestrator_ConfirmationTimeout(t *testing.T) {
	f := newFixture(t)

	res, err := f.orch.Process(context.Background(), "给张三发消息说晚上开会")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Kind != KindCancelled {
		t.Fatalf("Kind = %s, want cancelled", res.Kind)
	}
	if res.Reason != "confirmation timed out" {
		t.Errorf("Reason = %q", res.Reason)
	}
	if len(f.executions()) != 0 {
		t.Error("executor invoked despite timeout")
	}
	for _, r := range f.notifier.messages() {
		if r.Type == feedback.TypeSuccess {
			t.Errorf("success feedback issued: %q", r.Message)
		}
	}
	if _, ok := f.convo.Get(intent.KeyLastCommand); ok {
		t.Error("context updated despite cancellation")
	}
	if f.history.Len() != 1 {
		t.Errorf("cancellation not audited, history len = %d", f.history.Len())
	}
}

func TestOrchestrator_ConfirmationRejected(t *testing.T) {
	f := newFixture(t)

	done := make(chan Result, 1)
	go func() {
		res, _ := f.orch.Process(context.Background(), "给张三发消息说晚上开会")
		done <- res
	}()

	waitState(t, f.orch, StateConfirming)
	if err := f.orch.Confirm(false); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	res := <-done
	if res.Kind != KindCancelled || res.Reason != "confirmation rejected" {
		t.Fatalf("res = %+v", res)
	}
	if len(f.executions()) != 0 {
		t.Error("executor invoked despite rejection")
	}
	if !f.notifier.hasMessage("已取消") {
		t.Error("no cancellation notice spoken")
	}
}

// An unrecognized phrase yields NoMatch with suggestions, not an error.
func TestOrchestrator_NoMatch(t *testing.T) {
	f := newFixture(t)

	res, err := f.orch.Process(context.Background(), "随便说点什么")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Kind != KindNoMatch {
		t.Fatalf("Kind = %s, want no_match", res.Kind)
	}
	if res.Intent.Label != intent.LabelUnknown {
		t.Errorf("Label = %s, want unknown", res.Intent.Label)
	}
	if len(f.executions()) != 0 {
		t.Error("executor invoked on no match")
	}
	if f.history.Len() != 1 {
		t.Errorf("no-match not audited, history len = %d", f.history.Len())
	}
}

// Emergency commands skip the confirmation gate entirely.
func TestOrchestrator_EmergencySkipsConfirmation(t *testing.T) {
	f := newFixture(t)

	res, err := f.orch.Process(context.Background(), "紧急求助")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Kind != KindExecuted {
		t.Fatalf("Kind = %s (reason %q)", res.Kind, res.Reason)
	}
	for _, r := range f.notifier.messages() {
		if r.Type == feedback.TypeConfirm {
			t.Error("emergency command asked for confirmation")
		}
	}
	var emergency bool
	for _, r := range f.notifier.messages() {
		if r.Type == feedback.TypeEmergency {
			emergency = true
		}
	}
	if !emergency {
		t.Error("no emergency feedback issued")
	}
}

// A second Process while one is in flight is rejected, not queued.
func TestOrchestrator_BusyRejected(t *testing.T) {
	f := newFixture(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.orch.Process(context.Background(), "给张三发消息说晚上开会")
	}()

	waitState(t, f.orch, StateConfirming)
	if _, err := f.orch.Process(context.Background(), "紧急求助"); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}

	f.orch.Confirm(false)
	<-done

	// Idle again, a new command goes through.
	if _, err := f.orch.Process(context.Background(), "紧急求助"); err != nil {
		t.Errorf("Process after idle: %v", err)
	}
}

func TestOrchestrator_UnknownContactBlocked(t *testing.T) {
	f := newFixture(t)

	res, err := f.orch.Process(context.Background(), "给王五发消息说晚上开会")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Kind != KindBlocked {
		t.Fatalf("Kind = %s, want blocked", res.Kind)
	}
	if !f.notifier.hasMessage("没有找到联系人王五") {
		t.Errorf("no clarification prompt, got %+v", f.notifier.messages())
	}
	if len(f.executions()) != 0 {
		t.Error("executor invoked with unresolved contact")
	}
}

func TestOrchestrator_LowConfidenceBlocked(t *testing.T) {
	// Raising the validation floor above any achievable confidence forces
	// the gate for a phrase that otherwise executes.
	f := newFixture(t, WithThresholds(1.01, 0))

	res, err := f.orch.Process(context.Background(), "紧急求助")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Kind != KindBlocked {
		t.Fatalf("Kind = %s, want blocked", res.Kind)
	}
	if len(f.executions()) != 0 {
		t.Error("executor invoked below confidence floor")
	}
}

func TestOrchestrator_ConfirmOutsideConfirming(t *testing.T) {
	f := newFixture(t)
	if err := f.orch.Confirm(true); !errors.Is(err, ErrNotConfirming) {
		t.Errorf("err = %v, want ErrNotConfirming", err)
	}
}

func TestOrchestrator_SuppressesWakeOnFeedback(t *testing.T) {
	sup := &countingSuppressor{}
	f := newFixture(t, WithWakeSuppressor(sup))

	if _, err := f.orch.Process(context.Background(), "紧急求助"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sup.calls == 0 {
		t.Error("wake cooldown never nudged")
	}
}

func TestOrchestrator_ResultStream(t *testing.T) {
	f := newFixture(t)

	want, err := f.orch.Process(context.Background(), "紧急求助")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	select {
	case got := <-f.orch.Results():
		if got.Kind != want.Kind || got.Output != want.Output {
			t.Errorf("streamed result = %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("no result on stream")
	}
}

func TestState_Strings(t *testing.T) {
	cases := map[State]string{
		StateIdle:       "idle",
		StateConfirming: "confirming",
		StateCancelled:  "cancelled",
		State(99):       "unknown",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
	if KindNoMatch.String() != "no_match" {
		t.Errorf("KindNoMatch = %q", KindNoMatch.String())
	}
}

func waitState(t *testing.T, o *Orchestrator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state %s never reached, at %s", want, o.State())
}
