package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/charice-projects/omnivoice/cmd/omnivoice/internal/config"
	"github.com/charice-projects/omnivoice/pkg/command"
	"github.com/charice-projects/omnivoice/pkg/contacts"
	"github.com/charice-projects/omnivoice/pkg/intent"
	"github.com/charice-projects/omnivoice/pkg/kv"
	"github.com/charice-projects/omnivoice/pkg/storage"
	"github.com/charice-projects/omnivoice/pkg/transcribe"
	"github.com/charice-projects/omnivoice/pkg/transcribe/openaiasr"
	"github.com/charice-projects/omnivoice/pkg/transcribe/wsasr"
	"github.com/charice-projects/omnivoice/pkg/wake"
)

// openStore opens the badger-backed key-value store holding the command
// catalogue, audit ring, and conversation context snapshot.
func openStore(cfg *config.Config) (kv.Store, error) {
	store, err := kv.NewBadger(cfg.KVDir())
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	return store, nil
}

// modelStore opens the wake-model artifact store, local by default, S3
// when configured.
func modelStore(cfg *config.Config) (*wake.ModelStore, error) {
	if s3cfg := cfg.Wake.S3; s3cfg != nil {
		client := s3.New(s3.Options{
			Region: s3cfg.Region,
			Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     s3cfg.AccessKey,
					SecretAccessKey: s3cfg.SecretKey,
				}, nil
			}),
			BaseEndpoint: optionalString(s3cfg.Endpoint),
			UsePathStyle: s3cfg.Endpoint != "",
		})
		return wake.NewModelStore(storage.NewS3(client, s3cfg.Bucket, s3cfg.Prefix), ""), nil
	}
	fs, err := storage.NewLocal(cfg.Wake.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("open model dir: %w", err)
	}
	return wake.NewModelStore(fs, ""), nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// newRecognizer builds the intent recognizer from the built-in grammar or
// a user-supplied grammar file.
func newRecognizer(cfg *config.Config) (*intent.Recognizer, error) {
	if cfg.GrammarFile == "" {
		return intent.NewRecognizer(intent.DefaultGrammar())
	}
	g, err := intent.LoadGrammar(cfg.GrammarFile)
	if err != nil {
		return nil, err
	}
	return intent.NewRecognizer(g)
}

// newASRMux registers the configured transcription providers.
func newASRMux(cfg *config.Config) (*transcribe.Mux, error) {
	mux := transcribe.NewMux()
	if cfg.ASR.Endpoint != "" {
		h := wsasr.New(cfg.ASR.Endpoint, wsasr.WithToken(cfg.ASR.Token))
		if err := mux.Handle("asr/ws", h); err != nil {
			return nil, err
		}
	}
	if cfg.ASR.OpenAIKey != "" {
		client := openai.NewClient(option.WithAPIKey(cfg.ASR.OpenAIKey))
		var opts []openaiasr.Option
		if cfg.ASR.Model != "" {
			opts = append(opts, openaiasr.WithModel(openai.AudioModel(cfg.ASR.Model)))
		}
		if err := mux.Handle("asr/openai", openaiasr.New(&client, opts...)); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// newRegistry assembles the built-in commands plus the user's persisted
// catalogue.
func newRegistry(ctx context.Context, store kv.Store, user string) (*command.Registry, error) {
	reg := command.NewRegistry()
	for _, c := range command.Builtins(command.BuiltinDeps{
		Messages: simServices{},
		Calls:    simServices{},
		Alerts:   simServices{},
		Inbox:    simServices{},
	}) {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	userCmds, err := command.NewCatalog(store).Load(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load user catalogue: %w", err)
	}
	for _, c := range userCmds {
		if err := reg.Register(c); err != nil {
			slog.Warn("skipping user command", "id", c.ID, "error", err)
		}
	}
	return reg, nil
}

// directoryFrom builds the contact directory from the config's address
// book. A real deployment injects the platform contact provider instead.
func directoryFrom(cfg *config.Config) contacts.Directory {
	dir := contacts.NewMemoryDirectory()
	for _, c := range cfg.Contacts {
		dir.Add(&contacts.Contact{ID: c.ID, Name: c.Name, Phone: c.Phone, Labels: c.Labels})
	}
	return dir
}

// simServices stands in for the platform messaging and telephony
// integration; actions are logged rather than performed.
type simServices struct{}

func (simServices) SendMessage(_ context.Context, to *contacts.Contact, body string) error {
	slog.Info("sim: sending message", "to", to.Name, "phone", to.Phone, "body", body)
	return nil
}

func (simServices) Dial(_ context.Context, to *contacts.Contact) error {
	slog.Info("sim: dialing", "to", to.Name, "phone", to.Phone)
	return nil
}

func (simServices) RaiseAlert(_ context.Context, message string) error {
	slog.Info("sim: emergency alert", "message", message)
	return nil
}

func (simServices) UnreadMessages(context.Context) ([]command.Message, error) {
	return []command.Message{
		{From: "系统", Body: "欢迎使用语音助手", ReceivedAt: time.Now()},
	}, nil
}
