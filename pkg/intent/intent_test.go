package intent

import (
	"testing"
)

func newTestRecognizer(t *testing.T) *Recognizer {
	t.Helper()
	r, err := NewRecognizer(DefaultGrammar())
	if err != nil {
		t.Fatalf("NewRecognizer: %v", err)
	}
	return r
}

func TestRecognize_SendMessage(t *testing.T) {
	r := newTestRecognizer(t)

	in := r.Recognize("给张三发消息说晚上开会", nil)
	if in.Label != LabelSendMessage {
		t.Fatalf("label = %s, want %s", in.Label, LabelSendMessage)
	}
	if in.Confidence < 0.5 {
		t.Errorf("confidence = %v, want >= 0.5", in.Confidence)
	}
	if got := in.Entities["contact"]; got != "张三" {
		t.Errorf("contact = %q, want %q", got, "张三")
	}
	if got := in.Entities["message"]; got != "晚上开会" {
		t.Errorf("message = %q, want %q", got, "晚上开会")
	}
}

func TestRecognize_PatternVariants(t *testing.T) {
	r := newTestRecognizer(t)

	tests := []struct {
		text     string
		label    Label
		entities map[string]string
	}{
		{"给李四打电话", LabelMakeCall, map[string]string{"contact": "李四"}},
		{"打电话给张三", LabelMakeCall, map[string]string{"contact": "张三"}},
		{"call alice", LabelMakeCall, map[string]string{"contact": "alice"}},
		{"查找联系人王五", LabelSearchContact, map[string]string{"contact": "王五"}},
		{"张三的电话是多少", LabelSearchContact, map[string]string{"contact": "张三"}},
		{"救命", LabelEmergencyAlert, nil},
		{"emergency", LabelEmergencyAlert, nil},
		{"读一下我的消息", LabelReadMessages, nil},
		{"read my messages", LabelReadMessages, nil},
		{"取消", LabelCancel, nil},
		{"确认", LabelConfirm, nil},
		{"send a message to bob saying see you at noon", LabelSendMessage,
			map[string]string{"contact": "bob", "message": "see you at noon"}},
	}
	for _, tt := range tests {
		in := r.Recognize(tt.text, nil)
		if in.Label != tt.label {
			t.Errorf("%q: label = %s, want %s", tt.text, in.Label, tt.label)
			continue
		}
		if in.Confidence < 0.5 {
			t.Errorf("%q: confidence = %v, want >= 0.5", tt.text, in.Confidence)
		}
		for name, want := range tt.entities {
			if got := in.Entities[name]; got != want {
				t.Errorf("%q: entity %s = %q, want %q", tt.text, name, got, want)
			}
		}
	}
}

func TestRecognize_UnknownWithEmptyContext(t *testing.T) {
	r := newTestRecognizer(t)

	in := r.Recognize("随便说点什么", NewContext(0))
	if in.Label != LabelUnknown {
		t.Fatalf("label = %s, want %s", in.Label, LabelUnknown)
	}
	if in.Confidence >= 0.5 {
		t.Errorf("confidence = %v, want < 0.5", in.Confidence)
	}
}

func TestRecognize_KeywordFallback(t *testing.T) {
	r := newTestRecognizer(t)

	// No pattern covers this phrasing; the keyword table should.
	in := r.Recognize("帮我发消息", nil)
	if in.Label != LabelSendMessage {
		t.Fatalf("label = %s, want %s", in.Label, LabelSendMessage)
	}
	// "发消息" covers 3 of 5 runes.
	if got, want := in.Confidence, 0.6; got != want {
		t.Errorf("confidence = %v, want %v", got, want)
	}
}

func TestRecognize_ContextSubstitute(t *testing.T) {
	r := newTestRecognizer(t)

	cctx := NewContext(0)
	cctx.Set(KeyLastCommand, string(LabelMakeCall))

	in := r.Recognize("随便说点什么", cctx)
	if in.Label != LabelMakeCall {
		t.Fatalf("label = %s, want %s", in.Label, LabelMakeCall)
	}
	if got, want := in.Confidence, DefaultScoring().SubstituteConfidence; got != want {
		t.Errorf("confidence = %v, want %v", got, want)
	}
}

func TestRecognize_ContextBoost(t *testing.T) {
	r := newTestRecognizer(t)

	cctx := NewContext(0)
	cctx.Set("last_contact", "张三")

	base := r.Recognize("帮我发消息", nil)
	boosted := r.Recognize("帮我发消息", cctx)
	if boosted.Label != base.Label {
		t.Fatalf("boost changed label: %s vs %s", boosted.Label, base.Label)
	}
	want := base.Confidence * DefaultScoring().ContextBoost
	if boosted.Confidence != want {
		t.Errorf("confidence = %v, want %v", boosted.Confidence, want)
	}
}

func TestRecognize_BoostDoesNotExceedOne(t *testing.T) {
	r := newTestRecognizer(t)

	cctx := NewContext(0)
	cctx.Set("last_contact", "张三")

	in := r.Recognize("给张三发消息说晚上开会", cctx)
	if in.Confidence > 1.0 {
		t.Errorf("confidence = %v, want <= 1.0", in.Confidence)
	}
}

func TestRecognize_Deterministic(t *testing.T) {
	r := newTestRecognizer(t)

	texts := []string{
		"给张三发消息说晚上开会",
		"帮我发消息",
		"随便说点什么",
		"call alice",
	}
	for _, text := range texts {
		first := r.Recognize(text, nil)
		for i := 0; i < 10; i++ {
			got := r.Recognize(text, nil)
			if got.Label != first.Label || got.Confidence != first.Confidence {
				t.Fatalf("%q: run %d gave (%s, %v), first gave (%s, %v)",
					text, i, got.Label, got.Confidence, first.Label, first.Confidence)
			}
			for name, want := range first.Entities {
				if got.Entities[name] != want {
					t.Fatalf("%q: run %d entity %s = %q, want %q",
						text, i, name, got.Entities[name], want)
				}
			}
		}
	}
}

func TestRecognize_EmptyText(t *testing.T) {
	r := newTestRecognizer(t)

	for _, text := range []string{"", "   ", "。。。"} {
		in := r.Recognize(text, nil)
		if in.Label != LabelUnknown {
			t.Errorf("%q: label = %s, want %s", text, in.Label, LabelUnknown)
		}
	}
}

func TestRecognize_SlotConfidence(t *testing.T) {
	r := newTestRecognizer(t)

	in := r.Recognize("给张三发消息说晚上开会", nil)
	slot, ok := in.Slots["message"]
	if !ok {
		t.Fatal("no message slot")
	}
	if slot.Confidence <= 0 || slot.Confidence > 1 {
		t.Errorf("slot confidence = %v, want in (0, 1]", slot.Confidence)
	}
	if slot.Raw == "" {
		t.Error("slot raw text empty")
	}
}

func TestParseGrammar_Errors(t *testing.T) {
	if _, err := ParseGrammar([]byte("rules: []")); err == nil {
		t.Error("empty grammar: want error")
	}
	bad := []byte("rules:\n  - intent: x\n    patterns: ['[unclosed']\n")
	if _, err := ParseGrammar(bad); err == nil {
		t.Error("invalid pattern: want error")
	}
}

func TestLoadGrammar_Missing(t *testing.T) {
	if _, err := LoadGrammar("no/such/grammar.yaml"); err == nil {
		t.Error("want error for missing file")
	}
}

func TestEntityNames_Sorted(t *testing.T) {
	in := Intent{Entities: map[string]string{"message": "m", "contact": "c"}}
	names := in.EntityNames()
	if len(names) != 2 || names[0] != "contact" || names[1] != "message" {
		t.Errorf("names = %v, want [contact message]", names)
	}
}
