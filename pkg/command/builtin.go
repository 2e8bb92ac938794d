package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charice-projects/omnivoice/pkg/contacts"
	"github.com/charice-projects/omnivoice/pkg/intent"
)

// Messenger sends a text message to a resolved contact.
type Messenger interface {
	SendMessage(ctx context.Context, to *contacts.Contact, body string) error
}

// Dialer places a call to a resolved contact.
type Dialer interface {
	Dial(ctx context.Context, to *contacts.Contact) error
}

// Alerter raises an emergency alert to the configured channel.
type Alerter interface {
	RaiseAlert(ctx context.Context, message string) error
}

// Message is one inbox entry.
type Message struct {
	From       string
	Body       string
	ReceivedAt time.Time
}

// Inbox lists unread incoming messages.
type Inbox interface {
	UnreadMessages(ctx context.Context) ([]Message, error)
}

// BuiltinDeps are the downstream services the built-in catalogue executes
// against. Nil fields make the corresponding command fail at execution
// time with a clear error.
type BuiltinDeps struct {
	Messages Messenger
	Calls    Dialer
	Alerts   Alerter
	Inbox    Inbox
}

// Builtins returns the built-in command catalogue in registration order.
func Builtins(deps BuiltinDeps) []*Command {
	return []*Command{
		{
			ID:     "send_message",
			Intent: intent.LabelSendMessage,
			TriggerPhrases: []string{
				"给{contact}发消息", "发消息给{contact}", "告诉{contact}",
				"send message to {contact}", "text {contact}",
			},
			Priority:             5,
			RequiresConfirmation: true,
			RequiredEntities:     []string{"contact", "message"},
			ConfirmPrompt:        "确认发送消息给{contact}: {message}",
			Execute: func(ctx context.Context, req Request) (string, error) {
				if deps.Messages == nil {
					return "", fmt.Errorf("command: no messenger configured")
				}
				if req.Contact == nil {
					return "", fmt.Errorf("command: send_message without resolved contact")
				}
				body := req.Entities["message"]
				if err := deps.Messages.SendMessage(ctx, req.Contact, body); err != nil {
					return "", fmt.Errorf("command: send message: %w", err)
				}
				return fmt.Sprintf("消息已发送给%s", req.Contact.Name), nil
			},
		},
		{
			ID:     "make_call",
			Intent: intent.LabelMakeCall,
			TriggerPhrases: []string{
				"给{contact}打电话", "打电话给{contact}", "呼叫{contact}",
				"call {contact}", "dial {contact}",
			},
			Priority:             5,
			RequiresConfirmation: true,
			RequiredEntities:     []string{"contact"},
			ConfirmPrompt:        "确认呼叫{contact}",
			Execute: func(ctx context.Context, req Request) (string, error) {
				if deps.Calls == nil {
					return "", fmt.Errorf("command: no dialer configured")
				}
				if req.Contact == nil {
					return "", fmt.Errorf("command: make_call without resolved contact")
				}
				if err := deps.Calls.Dial(ctx, req.Contact); err != nil {
					return "", fmt.Errorf("command: dial: %w", err)
				}
				return fmt.Sprintf("正在呼叫%s", req.Contact.Name), nil
			},
		},
		{
			ID:     "search_contact",
			Intent: intent.LabelSearchContact,
			TriggerPhrases: []string{
				"查找{contact}", "查找联系人{contact}", "find {contact}",
			},
			Priority:         4,
			RequiredEntities: []string{"contact"},
			Execute: func(ctx context.Context, req Request) (string, error) {
				if req.Contact == nil {
					return "", fmt.Errorf("command: search_contact without resolved contact")
				}
				if req.Contact.Phone == "" {
					return fmt.Sprintf("找到联系人%s, 没有电话号码", req.Contact.Name), nil
				}
				return fmt.Sprintf("%s的电话是%s", req.Contact.Name, req.Contact.Phone), nil
			},
		},
		{
			ID:     "emergency_alert",
			Intent: intent.LabelEmergencyAlert,
			TriggerPhrases: []string{
				"紧急求助", "救命", "emergency",
			},
			Priority: MaxPriority,
			Class:    ClassEmergency,
			Execute: func(ctx context.Context, req Request) (string, error) {
				if deps.Alerts == nil {
					return "", fmt.Errorf("command: no alerter configured")
				}
				if err := deps.Alerts.RaiseAlert(ctx, req.RawText); err != nil {
					return "", fmt.Errorf("command: raise alert: %w", err)
				}
				return "紧急求助已发出", nil
			},
		},
		{
			ID:     "read_messages",
			Intent: intent.LabelReadMessages,
			TriggerPhrases: []string{
				"读消息", "查看消息", "read messages",
			},
			Priority: 3,
			Execute: func(ctx context.Context, req Request) (string, error) {
				if deps.Inbox == nil {
					return "", fmt.Errorf("command: no inbox configured")
				}
				msgs, err := deps.Inbox.UnreadMessages(ctx)
				if err != nil {
					return "", fmt.Errorf("command: read messages: %w", err)
				}
				if len(msgs) == 0 {
					return "没有新消息", nil
				}
				var b strings.Builder
				fmt.Fprintf(&b, "有%d条新消息. ", len(msgs))
				for _, m := range msgs {
					fmt.Fprintf(&b, "%s说: %s. ", m.From, m.Body)
				}
				return strings.TrimSpace(b.String()), nil
			},
		},
		{
			ID:     "cancel",
			Intent: intent.LabelCancel,
			TriggerPhrases: []string{
				"取消", "停止", "cancel", "stop",
			},
			Priority: 6,
			Execute: func(ctx context.Context, req Request) (string, error) {
				return "已取消", nil
			},
		},
	}
}
