package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/charice-projects/omnivoice/pkg/command"
	"github.com/charice-projects/omnivoice/pkg/contacts"
	"github.com/charice-projects/omnivoice/pkg/feedback"
	"github.com/charice-projects/omnivoice/pkg/intent"
)

// Defaults for the orchestrator gates.
const (
	// DefaultConfirmTimeout bounds the Confirming state; an unanswered
	// confirmation cancels the command.
	DefaultConfirmTimeout = 5 * time.Second
	// DefaultMinConfidence is the validation gate threshold.
	DefaultMinConfidence = 0.5
	// DefaultConfirmBelow forces a confirmation when recognition
	// confidence falls under it, regardless of the command's own flag.
	DefaultConfirmBelow = 0.8
)

// Notifier receives spoken feedback requests. *feedback.Announcer
// satisfies it.
type Notifier interface {
	Announce(req feedback.Request) (string, error)
}

// Suppressor restarts the wake detector's cooldown. The orchestrator
// nudges it before speaking so the device's own voice cannot wake it.
// *wake.Detector satisfies it.
type Suppressor interface {
	Suppress()
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithContext attaches the conversation context consulted by the
// recognizer and updated after each completed command.
func WithContext(c *intent.Context) Option {
	return func(o *Orchestrator) { o.convo = c }
}

// WithDirectory attaches the contact directory used to resolve the
// contact entity before execution.
func WithDirectory(d contacts.Directory) Option {
	return func(o *Orchestrator) { o.directory = d }
}

// WithHistory attaches the audit ring; every outcome is recorded,
// failures included.
func WithHistory(h *command.History) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithNotifier attaches the feedback announcer.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithWakeSuppressor attaches the wake detector cooldown hook.
func WithWakeSuppressor(s Suppressor) Option {
	return func(o *Orchestrator) { o.suppressor = s }
}

// WithConfirmTimeout overrides the confirmation timeout.
func WithConfirmTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.confirmTimeout = d
		}
	}
}

// WithThresholds overrides the validation and confirmation confidence
// gates. Non-positive values keep the defaults.
func WithThresholds(minConfidence, confirmBelow float64) Option {
	return func(o *Orchestrator) {
		if minConfidence > 0 {
			o.minConfidence = minConfidence
		}
		if confirmBelow > 0 {
			o.confirmBelow = confirmBelow
		}
	}
}

// Orchestrator is the command state machine. One instance runs per
// session; Process rejects re-entry while a command is in flight.
type Orchestrator struct {
	recognizer *intent.Recognizer
	registry   *command.Registry
	convo      *intent.Context
	directory  contacts.Directory
	history    *command.History
	notifier   Notifier
	suppressor Suppressor

	confirmTimeout time.Duration
	minConfidence  float64
	confirmBelow   float64

	mu      sync.Mutex
	state   State
	confirm chan bool

	results chan Result
	states  chan State
}

// New creates an orchestrator over a recognizer and a command registry.
func New(recognizer *intent.Recognizer, registry *command.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		recognizer:     recognizer,
		registry:       registry,
		confirmTimeout: DefaultConfirmTimeout,
		minConfidence:  DefaultMinConfidence,
		confirmBelow:   DefaultConfirmBelow,
		state:          StateIdle,
		results:        make(chan Result, 16),
		states:         make(chan State, 32),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Results is the outcome stream, one Result per Process call. The channel
// is never closed; slow consumers lose the oldest entries.
func (o *Orchestrator) Results() <-chan Result {
	return o.results
}

// States is the listening-state stream for a UI indicator.
func (o *Orchestrator) States() <-chan State {
	return o.states
}

// Process drives one utterance through the full state machine and blocks
// until a terminal outcome, including any confirmation wait. It returns
// ErrBusy without queueing when a command is already in flight.
func (o *Orchestrator) Process(ctx context.Context, text string) (Result, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return Result{}, ErrBusy
	}
	o.state = StateRecognizing
	o.mu.Unlock()
	o.emitState(StateRecognizing)

	res := o.run(ctx, text)

	o.setState(StateIdle)
	o.emitResult(res)
	return res, nil
}

// Confirm resolves a pending confirmation. It returns ErrNotConfirming
// when no command is waiting.
func (o *Orchestrator) Confirm(accept bool) error {
	o.mu.Lock()
	ch := o.confirm
	o.mu.Unlock()
	if ch == nil {
		return ErrNotConfirming
	}
	select {
	case ch <- accept:
	default:
		// Already answered; the duplicate is dropped.
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, text string) Result {
	in := o.recognizer.Recognize(text, o.convo)

	cmd := o.registry.Match(in.Label, in.Entities, text)
	if cmd == nil {
		sugs := o.registry.Suggest(text)
		slog.Info("pipeline: no command matched",
			"text", text, "label", in.Label, "suggestions", len(sugs))
		o.record(ctx, "", text, in, "", "no matching command")
		o.say("我没有听懂，请换个说法", feedback.TypeWarning)
		o.setState(StateError)
		return Result{Kind: KindNoMatch, Intent: in, Suggestions: sugs}
	}

	o.setState(StateProcessing)

	if in.Confidence < o.minConfidence {
		reason := fmt.Sprintf("confidence %.2f below %.2f", in.Confidence, o.minConfidence)
		o.record(ctx, cmd.ID, text, in, "", reason)
		o.say("我不太确定您的意思，请再说一遍", feedback.TypeWarning)
		o.setState(StateError)
		return Result{Kind: KindBlocked, Intent: in, Command: cmd, Reason: reason}
	}

	entities := maps.Clone(in.Entities)
	if entities == nil {
		entities = map[string]string{}
	}
	if missing := missingEntities(cmd, entities); len(missing) > 0 {
		reason := "missing entity: " + missing[0]
		o.record(ctx, cmd.ID, text, in, "", reason)
		o.say("请补充"+entityPrompt(missing[0]), feedback.TypeWarning)
		o.setState(StateError)
		return Result{Kind: KindBlocked, Intent: in, Command: cmd, Reason: reason}
	}

	var contact *contacts.Contact
	if cmd.NeedsContact() && o.directory != nil {
		c, err := o.directory.Search(ctx, entities["contact"])
		switch {
		case errors.Is(err, contacts.ErrNotFound):
			reason := "unknown contact: " + entities["contact"]
			o.record(ctx, cmd.ID, text, in, "", reason)
			o.say("没有找到联系人"+entities["contact"], feedback.TypeWarning)
			o.setState(StateError)
			return Result{Kind: KindBlocked, Intent: in, Command: cmd, Reason: reason}
		case err != nil:
			o.record(ctx, cmd.ID, text, in, "", err.Error())
			o.say("联系人查询失败", feedback.TypeError)
			o.setState(StateError)
			return Result{Kind: KindFailed, Intent: in, Command: cmd, Err: err, Retryable: true}
		}
		contact = c
		entities["contact"] = c.Name
	}

	if (cmd.RequiresConfirmation || in.Confidence < o.confirmBelow) && !cmd.IsEmergency() {
		if res, cancelled := o.awaitConfirmation(ctx, cmd, in, text, entities); cancelled {
			return res
		}
	}

	o.setState(StateExecuting)
	if cmd.Execute == nil {
		err := fmt.Errorf("pipeline: command %s has no executor", cmd.ID)
		o.record(ctx, cmd.ID, text, in, "", err.Error())
		o.setState(StateError)
		return Result{Kind: KindFailed, Intent: in, Command: cmd, Err: err}
	}

	out, err := cmd.Execute(ctx, command.Request{
		Intent:   in,
		RawText:  text,
		Entities: entities,
		Contact:  contact,
	})
	if err != nil {
		slog.Warn("pipeline: executor failed", "command", cmd.ID, "error", err)
		o.record(ctx, cmd.ID, text, in, "", err.Error())
		o.say("指令执行失败", feedback.TypeError)
		o.setState(StateError)
		return Result{Kind: KindFailed, Intent: in, Command: cmd, Err: err, Retryable: true}
	}

	o.updateContext(cmd, entities)
	o.record(ctx, cmd.ID, text, in, out, "")
	typ := feedback.TypeSuccess
	if cmd.IsEmergency() {
		typ = feedback.TypeEmergency
	}
	o.say(out, typ)
	o.setState(StateCompleted)
	return Result{Kind: KindExecuted, Intent: in, Command: cmd, Output: out}
}

// awaitConfirmation runs the Confirming state. The second return is true
// when the command was cancelled and res should be returned as-is.
func (o *Orchestrator) awaitConfirmation(ctx context.Context, cmd *command.Command, in intent.Intent, text string, entities map[string]string) (res Result, cancelled bool) {
	ch := make(chan bool, 1)
	o.mu.Lock()
	o.confirm = ch
	o.state = StateConfirming
	o.mu.Unlock()
	o.emitState(StateConfirming)

	defer func() {
		o.mu.Lock()
		o.confirm = nil
		o.mu.Unlock()
	}()

	o.say(confirmPrompt(cmd, entities), feedback.TypeConfirm)

	timer := time.NewTimer(o.confirmTimeout)
	defer timer.Stop()

	var accepted, answered bool
	select {
	case accepted = <-ch:
		answered = true
	case <-timer.C:
	case <-ctx.Done():
	}

	if answered && accepted {
		return Result{}, false
	}

	reason := "confirmation timed out"
	switch {
	case answered:
		reason = "confirmation rejected"
		o.say("已取消", feedback.TypeInfo)
	case ctx.Err() != nil:
		reason = "cancelled"
	default:
		o.say("确认超时，已取消", feedback.TypeWarning)
	}
	slog.Info("pipeline: command cancelled", "command", cmd.ID, "reason", reason)
	o.record(ctx, cmd.ID, text, in, "", reason)
	o.setState(StateCancelled)
	return Result{Kind: KindCancelled, Intent: in, Command: cmd, Reason: reason}, true
}

// updateContext stores the completed command and its entities for the
// recognizer's next turn.
func (o *Orchestrator) updateContext(cmd *command.Command, entities map[string]string) {
	if o.convo == nil {
		return
	}
	o.convo.Set(intent.KeyLastCommand, string(cmd.Intent))
	for k, v := range entities {
		if v != "" {
			o.convo.Set(intent.EntityKeyPrefix+k, v)
		}
	}
}

func (o *Orchestrator) record(ctx context.Context, cmdID, text string, in intent.Intent, result, errMsg string) {
	if o.history == nil {
		return
	}
	err := o.history.Append(ctx, command.Execution{
		CommandID: cmdID,
		InputText: text,
		Intent:    in.Label,
		Entities:  in.Entities,
		Result:    result,
		Err:       errMsg,
	})
	if err != nil {
		slog.Warn("pipeline: audit append failed", "command", cmdID, "error", err)
	}
}

func (o *Orchestrator) say(msg string, typ feedback.Type) {
	if o.suppressor != nil {
		o.suppressor.Suppress()
	}
	if o.notifier == nil || msg == "" {
		return
	}
	if _, err := o.notifier.Announce(feedback.Request{
		Message:  msg,
		Type:     typ,
		PlayTone: true,
		Speak:    true,
	}); err != nil {
		slog.Warn("pipeline: feedback dropped", "error", err)
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.emitState(s)
}

// emitState never blocks; a slow UI loses the oldest entries.
func (o *Orchestrator) emitState(s State) {
	for {
		select {
		case o.states <- s:
			return
		default:
		}
		select {
		case <-o.states:
		default:
		}
	}
}

func (o *Orchestrator) emitResult(r Result) {
	for {
		select {
		case o.results <- r:
			return
		default:
		}
		select {
		case <-o.results:
		default:
		}
	}
}

func missingEntities(cmd *command.Command, entities map[string]string) []string {
	var missing []string
	for _, name := range cmd.RequiredEntities {
		if entities[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func confirmPrompt(cmd *command.Command, entities map[string]string) string {
	if cmd.ConfirmPrompt != "" {
		if s, ok := command.Substitute(cmd.ConfirmPrompt, entities); ok {
			return s
		}
	}
	return "确认执行该指令吗"
}

// entityPrompt maps entity names to the spoken clarification wording.
func entityPrompt(name string) string {
	switch name {
	case "contact":
		return "联系人"
	case "message":
		return "消息内容"
	case "time":
		return "时间"
	case "location":
		return "地点"
	}
	return name
}
