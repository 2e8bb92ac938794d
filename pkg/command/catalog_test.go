package command

import (
	"context"
	"errors"
	"testing"

	"github.com/charice-projects/omnivoice/pkg/intent"
	"github.com/charice-projects/omnivoice/pkg/kv"
)

func TestCatalog_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cat := NewCatalog(kv.NewMemory())

	cmds := []*Command{
		{
			ID:             "goodnight",
			Intent:         intent.LabelSendMessage,
			TriggerPhrases: []string{"晚安消息给{contact}"},
			Priority:       3,
			Reply:          "晚安消息已发给{contact}",
			Execute:        okExec,
		},
		{
			ID:       "quick_cancel",
			Intent:   intent.LabelCancel,
			Priority: 6,
			Class:    ClassStandard,
		},
	}
	must(t, cat.Save(ctx, "u1", cmds))

	loaded, err := cat.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len = %d, want 2", len(loaded))
	}
	// Order is preserved.
	if loaded[0].ID != "goodnight" || loaded[1].ID != "quick_cancel" {
		t.Errorf("order = [%s %s]", loaded[0].ID, loaded[1].ID)
	}
	if loaded[0].Execute == nil {
		t.Fatal("loaded command has no executor")
	}

	out, err := loaded[0].Execute(ctx, Request{Entities: map[string]string{"contact": "张三"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "晚安消息已发给张三" {
		t.Errorf("reply = %q", out)
	}
}

func TestCatalog_LoadMissingUser(t *testing.T) {
	cat := NewCatalog(kv.NewMemory())
	loaded, err := cat.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("len = %d, want 0", len(loaded))
	}
}

func TestCatalog_SaveEmptyUser(t *testing.T) {
	cat := NewCatalog(kv.NewMemory())
	if err := cat.Save(context.Background(), "", nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestCatalog_Delete(t *testing.T) {
	ctx := context.Background()
	cat := NewCatalog(kv.NewMemory())

	must(t, cat.Save(ctx, "u1", []*Command{{ID: "x", Intent: intent.LabelCancel, Priority: 1}}))
	must(t, cat.Delete(ctx, "u1"))
	loaded, err := cat.Load(ctx, "u1")
	if err != nil || len(loaded) != 0 {
		t.Errorf("after delete: loaded=%v err=%v", loaded, err)
	}
	// Deleting again is not an error.
	must(t, cat.Delete(ctx, "u1"))
}

func TestReplyExecutor_DefaultReply(t *testing.T) {
	exec := replyExecutor("")
	out, err := exec(context.Background(), Request{})
	if err != nil || out == "" {
		t.Errorf("exec = (%q, %v), want non-empty reply", out, err)
	}
}
