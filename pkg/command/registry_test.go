package command

import (
	"context"
	"errors"
	"testing"

	"github.com/charice-projects/omnivoice/pkg/intent"
)

func okExec(ctx context.Context, req Request) (string, error) { return "ok", nil }

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		cmd  *Command
		err  error
	}{
		{"empty id", &Command{Intent: intent.LabelCancel, Priority: 1}, ErrInvalid},
		{"no intent", &Command{ID: "x", Priority: 1}, ErrInvalid},
		{"priority low", &Command{ID: "x", Intent: intent.LabelCancel, Priority: 0}, ErrInvalid},
		{"priority high", &Command{ID: "x", Intent: intent.LabelCancel, Priority: 11}, ErrInvalid},
	}
	for _, tt := range tests {
		if err := r.Register(tt.cmd); !errors.Is(err, tt.err) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.err)
		}
	}

	ok := &Command{ID: "x", Intent: intent.LabelCancel, Priority: 1, Execute: okExec}
	if err := r.Register(ok); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(ok); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate: err = %v, want ErrDuplicate", err)
	}
	if ok.Class != ClassStandard {
		t.Errorf("class defaulted to %q, want %q", ok.Class, ClassStandard)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	if err := r.Unregister("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	must(t, r.Register(&Command{ID: "x", Intent: intent.LabelCancel, Priority: 1}))
	if err := r.Unregister("x"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if _, ok := r.Get("x"); ok {
		t.Error("command still present after Unregister")
	}
	if len(r.List()) != 0 {
		t.Error("List not empty after Unregister")
	}
}

func TestRegistry_MatchRoundTrip(t *testing.T) {
	r := NewRegistry()
	for _, c := range Builtins(BuiltinDeps{}) {
		must(t, r.Register(c))
	}

	entities := map[string]string{"contact": "张三", "message": "晚上开会"}
	got := r.Match(intent.LabelSendMessage, entities, "给张三发消息说晚上开会")
	if got == nil || got.ID != "send_message" {
		t.Fatalf("Match = %v, want send_message", got)
	}
	if !got.RequiresConfirmation {
		t.Error("send_message should require confirmation")
	}
}

func TestRegistry_MatchUnknownLabel(t *testing.T) {
	r := NewRegistry()
	for _, c := range Builtins(BuiltinDeps{}) {
		must(t, r.Register(c))
	}
	if got := r.Match(intent.LabelUnknown, nil, "随便说点什么"); got != nil {
		t.Errorf("Match unknown = %s, want nil", got.ID)
	}
	if got := r.Match("no_such_label", nil, "whatever"); got != nil {
		t.Errorf("Match unregistered label = %s, want nil", got.ID)
	}
}

func TestRegistry_MatchPrefersTriggerHit(t *testing.T) {
	r := NewRegistry()
	// Higher priority but no trigger hit.
	must(t, r.Register(&Command{
		ID: "generic", Intent: intent.LabelMakeCall, Priority: 9,
		TriggerPhrases: []string{"place a call"},
	}))
	// Lower priority with a literal substituted trigger.
	must(t, r.Register(&Command{
		ID: "direct", Intent: intent.LabelMakeCall, Priority: 2,
		TriggerPhrases: []string{"给{contact}打电话"},
	}))

	got := r.Match(intent.LabelMakeCall, map[string]string{"contact": "李四"}, "给李四打电话")
	if got == nil || got.ID != "direct" {
		t.Fatalf("Match = %v, want direct", got)
	}
}

func TestRegistry_MatchEntityPresenceAndPriority(t *testing.T) {
	r := NewRegistry()
	must(t, r.Register(&Command{
		ID: "needs_time", Intent: intent.LabelSendMessage, Priority: 8,
		RequiredEntities: []string{"contact", "time"},
	}))
	must(t, r.Register(&Command{
		ID: "low", Intent: intent.LabelSendMessage, Priority: 2,
		RequiredEntities: []string{"contact"},
	}))
	must(t, r.Register(&Command{
		ID: "high", Intent: intent.LabelSendMessage, Priority: 7,
		RequiredEntities: []string{"contact"},
	}))

	// "time" is absent, so needs_time loses despite top priority.
	got := r.Match(intent.LabelSendMessage, map[string]string{"contact": "张三"}, "给张三发个消息")
	if got == nil || got.ID != "high" {
		t.Fatalf("Match = %v, want high", got)
	}
}

func TestRegistry_MatchFallsBackToLabel(t *testing.T) {
	r := NewRegistry()
	must(t, r.Register(&Command{
		ID: "send_message", Intent: intent.LabelSendMessage, Priority: 5,
		RequiredEntities: []string{"contact", "message"},
	}))

	// No entities extracted; the label still identifies the command so the
	// orchestrator can prompt for the missing pieces.
	got := r.Match(intent.LabelSendMessage, nil, "发消息")
	if got == nil || got.ID != "send_message" {
		t.Fatalf("Match = %v, want send_message", got)
	}
}

func TestRegistry_Suggest(t *testing.T) {
	r := NewRegistry()
	for _, c := range Builtins(BuiltinDeps{}) {
		must(t, r.Register(c))
	}

	sugg := r.Suggest("我想发消息给别人")
	if len(sugg) == 0 {
		t.Fatal("no suggestions")
	}
	if sugg[0].Command.ID != "send_message" {
		t.Errorf("top suggestion = %s, want send_message", sugg[0].Command.ID)
	}
	for i := 1; i < len(sugg); i++ {
		if sugg[i].Score > sugg[i-1].Score {
			t.Errorf("suggestions not sorted: %v before %v", sugg[i-1].Score, sugg[i].Score)
		}
	}
	for _, s := range sugg {
		if s.Score < MinSuggestionScore {
			t.Errorf("suggestion %s below floor: %v", s.Command.ID, s.Score)
		}
	}
}

func TestRegistry_SuggestNoisyInput(t *testing.T) {
	r := NewRegistry()
	for _, c := range Builtins(BuiltinDeps{}) {
		must(t, r.Register(c))
	}
	if sugg := r.Suggest("今天天气怎么样呢朋友"); len(sugg) != 0 {
		t.Errorf("unrelated text produced %d suggestions", len(sugg))
	}
}

func TestSubstitute(t *testing.T) {
	entities := map[string]string{"contact": "张三", "message": "晚上开会"}

	tests := []struct {
		tmpl string
		want string
		ok   bool
	}{
		{"给{contact}发消息", "给张三发消息", true},
		{"确认发送消息给{contact}: {message}", "确认发送消息给张三: 晚上开会", true},
		{"no placeholders", "no placeholders", true},
		{"{missing}", "", false},
		{"", "", true},
	}
	for _, tt := range tests {
		got, ok := Substitute(tt.tmpl, entities)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Substitute(%q) = (%q, %v), want (%q, %v)", tt.tmpl, got, ok, tt.want, tt.ok)
		}
	}
}

func TestJaccard(t *testing.T) {
	a := tokens("给张三发消息")
	if got := jaccard(a, a); got != 1.0 {
		t.Errorf("self similarity = %v, want 1.0", got)
	}
	if got := jaccard(a, tokens("read messages")); got != 0 {
		t.Errorf("disjoint similarity = %v, want 0", got)
	}
	if got := jaccard(nil, a); got != 0 {
		t.Errorf("empty set similarity = %v, want 0", got)
	}
}

func TestTokens_SkipsPlaceholders(t *testing.T) {
	set := tokens("给{contact}发消息")
	if _, ok := set["contact"]; ok {
		t.Error("placeholder name leaked into token set")
	}
	for _, want := range []string{"给", "发", "消", "息"} {
		if _, ok := set[want]; !ok {
			t.Errorf("missing token %q", want)
		}
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
