package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/charice-projects/omnivoice/cmd/omnivoice/internal/config"
	"github.com/charice-projects/omnivoice/pkg/audio/fbank"
	"github.com/charice-projects/omnivoice/pkg/audio/pcm"
	"github.com/charice-projects/omnivoice/pkg/audio/portaudio"
	"github.com/charice-projects/omnivoice/pkg/audio/resampler"
	"github.com/charice-projects/omnivoice/pkg/command"
	"github.com/charice-projects/omnivoice/pkg/feedback"
	"github.com/charice-projects/omnivoice/pkg/intent"
	"github.com/charice-projects/omnivoice/pkg/kv"
	"github.com/charice-projects/omnivoice/pkg/onnx"
	"github.com/charice-projects/omnivoice/pkg/pipeline"
	"github.com/charice-projects/omnivoice/pkg/transcribe"
	"github.com/charice-projects/omnivoice/pkg/wake"
)

var (
	runText  string
	runPlain bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the always-on voice command pipeline",
	Long: `Run starts the full pipeline: the microphone is watched for the wake
word, the following utterance is transcribed and executed as a command,
and the outcome is spoken back.

With --text the microphone and wake detector are skipped and the given
utterance is processed once; confirmations are answered on stdin.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runText, "text", "", "process a single typed utterance and exit")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "log lines instead of the status frame")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := newPipelineSession(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer sess.shutdown(context.Background(), store)

	go sess.watchStates(ctx)

	if runText != "" {
		return sess.processOnce(ctx, runText)
	}
	return sess.listen(ctx, cfg)
}

// pipelineSession holds the wired pipeline for one run invocation.
type pipelineSession struct {
	cfg       *config.Config
	convo     *intent.Context
	history   *command.History
	announcer *feedback.Announcer
	orch      *pipeline.Orchestrator
	trans     *transcribe.Transcriber
	asrOpts   transcribe.Options
	view      *statusView
	suppress  *lazySuppressor

	// confirming receives a tick whenever the orchestrator enters the
	// Confirming state. Capacity 1; watchStates is the only sender.
	confirming chan struct{}

	cancelAnnouncer context.CancelFunc
}

func newPipelineSession(ctx context.Context, cfg *config.Config, store kv.Store) (*pipelineSession, error) {
	recognizer, err := newRecognizer(cfg)
	if err != nil {
		return nil, err
	}
	registry, err := newRegistry(ctx, store, cfg.User)
	if err != nil {
		return nil, err
	}
	asrMux, err := newASRMux(cfg)
	if err != nil {
		return nil, err
	}
	idle, err := cfg.IdleTimeoutDuration()
	if err != nil {
		return nil, err
	}

	history := command.NewHistory(store, command.DefaultHistorySize)
	if err := history.Load(ctx); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	convo := intent.NewContext(0)
	if data, err := store.Get(ctx, contextKey(cfg.User)); err == nil {
		if err := convo.Restore(data); err != nil {
			slog.Warn("discarding corrupt context snapshot", "error", err)
		}
	} else if !errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("load context: %w", err)
	}

	view := newStatusView(!runPlain)
	if !runPlain {
		// The frame owns the terminal; route log lines into it.
		level := slog.LevelInfo
		if IsVerbose() {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(view.LogOutput(), &slog.HandlerOptions{
			Level: level,
		})))
	}

	ttsMux := feedback.NewMux()
	if err := ttsMux.Handle("tts/console", consoleSpeaker{view: view}); err != nil {
		return nil, err
	}
	if err := ttsMux.Handle("tts/portaudio", &audioSpeaker{view: view}); err != nil {
		return nil, err
	}
	speaker, err := ttsMux.Speaker("tts/" + cfg.TTS.Provider)
	if err != nil {
		return nil, fmt.Errorf("tts provider: %w", err)
	}

	announcer := feedback.NewAnnouncer(speaker)
	actx, cancelAnnouncer := context.WithCancel(context.Background())
	if err := announcer.Start(actx); err != nil {
		cancelAnnouncer()
		return nil, err
	}

	suppress := &lazySuppressor{}
	orch := pipeline.New(recognizer, registry,
		pipeline.WithContext(convo),
		pipeline.WithDirectory(directoryFrom(cfg)),
		pipeline.WithHistory(history),
		pipeline.WithNotifier(announcer),
		pipeline.WithWakeSuppressor(suppress),
	)

	return &pipelineSession{
		cfg:       cfg,
		convo:     convo,
		history:   history,
		announcer: announcer,
		orch:      orch,
		trans:     transcribe.NewTranscriber(asrMux),
		asrOpts: transcribe.Options{
			Language:    cfg.ASR.Language,
			Partials:    cfg.ASR.Partials,
			IdleTimeout: idle,
		},
		view:            view,
		suppress:        suppress,
		confirming:      make(chan struct{}, 1),
		cancelAnnouncer: cancelAnnouncer,
	}, nil
}

// shutdown persists the conversation context and stops feedback.
func (s *pipelineSession) shutdown(ctx context.Context, store kv.Store) {
	if data, err := s.convo.Snapshot(); err == nil {
		if err := store.Set(ctx, contextKey(s.cfg.User), data); err != nil {
			slog.Warn("context snapshot not saved", "error", err)
		}
	}
	s.cancelAnnouncer()
	s.announcer.Wait()
}

func contextKey(user string) kv.Key {
	return kv.Key{"context", user}
}

// watchStates is the single consumer of the orchestrator state stream: it
// feeds the status view and signals pending confirmations.
func (s *pipelineSession) watchStates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-s.orch.States():
			s.view.setState(st.String())
			if st == pipeline.StateConfirming {
				select {
				case s.confirming <- struct{}{}:
				default:
				}
			}
		}
	}
}

// processOnce runs a single typed utterance, answering confirmations on
// stdin.
func (s *pipelineSession) processOnce(ctx context.Context, text string) error {
	done := make(chan struct{})
	defer close(done)
	go s.answerConfirmationsFromStdin(ctx, done)

	s.view.setTranscript(text)
	res, err := s.orch.Process(ctx, text)
	if err != nil {
		return err
	}
	s.view.setResult(res)
	s.flushFeedback(2 * time.Second)
	printResult(res)
	return nil
}

func (s *pipelineSession) answerConfirmationsFromStdin(ctx context.Context, done <-chan struct{}) {
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-s.confirming:
		}
		fmt.Fprint(os.Stderr, "confirm? [y/N]: ")
		line, _ := reader.ReadString('\n')
		answer := strings.TrimSpace(strings.ToLower(line))
		if err := s.orch.Confirm(answer == "y" || answer == "yes"); err != nil && !errors.Is(err, pipeline.ErrNotConfirming) {
			slog.Debug("confirmation not delivered", "error", err)
		}
	}
}

// flushFeedback lets queued speech finish before the process exits.
func (s *pipelineSession) flushFeedback(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_, playing := s.announcer.Current()
		if !playing && s.announcer.Pending() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// listen runs the microphone loop: wake word, transcription, execution.
func (s *pipelineSession) listen(ctx context.Context, cfg *config.Config) error {
	detector, classifier, err := s.buildDetector(ctx, cfg)
	if err != nil {
		return err
	}
	defer classifier.Close()
	s.suppress.bind(detector)

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	defer portaudio.Terminate()

	capture, err := captureFormat(cfg.Audio.SampleRate)
	if err != nil {
		return err
	}
	mic, err := newMicSource(capture, pcm.L16Mono16K)
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	defer mic.Close()

	if err := detector.Start(ctx, mic); err != nil {
		return err
	}
	defer detector.Stop()
	s.view.setState("listening for wake word")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-detector.Events():
			switch ev.Kind {
			case wake.EventWake:
				s.view.setState(fmt.Sprintf("wake word (%.2f)", ev.Wake.Confidence))
				s.handleUtterance(ctx, detector, mic)
				s.view.setState("listening for wake word")
			case wake.EventError:
				return fmt.Errorf("wake detector: %w", ev.Err)
			case wake.EventLevel:
				s.view.setLevel(ev.Level.RMS, ev.Level.DroppedWindows)
			}
		}
	}
}

// handleUtterance hands the microphone from the detector to a
// transcription session, then processes the final transcript.
func (s *pipelineSession) handleUtterance(ctx context.Context, detector *wake.Detector, mic *micSource) {
	if err := detector.Stop(); err != nil {
		slog.Warn("detector stop", "error", err)
	}
	defer func() {
		if err := detector.Start(ctx, mic); err != nil && ctx.Err() == nil {
			slog.Error("detector restart failed", "error", err)
		}
	}()

	tr, err := s.transcribeUtterance(ctx, mic)
	if err != nil {
		slog.Warn("transcription failed", "error", err)
		s.view.setState("transcription failed")
		return
	}
	s.view.setTranscript(tr.Text)

	done := make(chan struct{})
	go s.answerConfirmationsByVoice(ctx, mic, done)
	res, err := s.orch.Process(ctx, tr.Text)
	close(done)
	if err != nil {
		slog.Warn("process", "error", err)
		return
	}
	s.view.setResult(res)
}

func (s *pipelineSession) transcribeUtterance(ctx context.Context, mic *micSource) (transcribe.Transcript, error) {
	sess, err := s.trans.Start(ctx, s.cfg.ASR.Provider, s.asrOpts, mic)
	if err != nil {
		return transcribe.Transcript{}, err
	}
	if s.asrOpts.Partials {
		go func() {
			for tr := range sess.Results() {
				if !tr.IsFinal {
					s.view.setTranscript(tr.Text + " …")
				}
			}
		}()
	}
	return sess.Wait(ctx)
}

// answerConfirmationsByVoice listens for a spoken 确认/取消 while the
// orchestrator waits in Confirming.
func (s *pipelineSession) answerConfirmationsByVoice(ctx context.Context, mic *micSource, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-s.confirming:
		}
		tr, err := s.trans.Transcribe(ctx, s.cfg.ASR.Provider, s.asrOpts, mic)
		if err != nil {
			slog.Warn("confirmation transcription failed", "error", err)
			continue
		}
		if err := s.orch.Confirm(isAffirmative(tr.Text)); err != nil && !errors.Is(err, pipeline.ErrNotConfirming) {
			slog.Debug("confirmation not delivered", "error", err)
		}
	}
}

func isAffirmative(text string) bool {
	switch intent.Normalize(text) {
	case "确认", "确定", "是的", "好的", "对", "嗯", "yes", "confirm", "ok", "okay", "sure":
		return true
	}
	return false
}

// buildDetector loads the current wake model and profile from the store.
func (s *pipelineSession) buildDetector(ctx context.Context, cfg *config.Config) (*wake.Detector, *wake.ONNXClassifier, error) {
	ms, err := modelStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	current, err := ms.Current(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("no wake model installed (run 'omnivoice train' or install a base model): %w", err)
	}

	blob, err := loadInferenceBlob(ctx, ms, current)
	if err != nil {
		return nil, nil, err
	}

	env, err := onnx.NewEnv("omnivoice")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", wake.ErrModelLoad, err)
	}

	fcfg := fbank.DefaultConfig()
	frames := fbank.New(fcfg).NumFrames(int(pcm.L16Mono16K.SamplesInDuration(wake.DefaultWindow)))
	classifier, err := wake.NewONNXClassifier(env, blob, frames, fcfg.NumMels)
	if err != nil {
		return nil, nil, err
	}

	sensitivity := cfg.Wake.Sensitivity
	if current.Threshold > 0 {
		sensitivity = current.Threshold
	}
	cooldown, err := cfg.CooldownDuration()
	if err != nil {
		return nil, nil, err
	}

	detector := wake.NewDetector(wake.Config{
		WakeWord:    cfg.Wake.Word,
		Sensitivity: sensitivity,
		Cooldown:    cooldown,
	}, classifier)
	return detector, classifier, nil
}

// loadInferenceBlob returns the model artifact for the current version,
// falling back to the newest version that carries one. Trained profiles
// store only a manifest; the inference artifact stays with the base
// version.
func loadInferenceBlob(ctx context.Context, ms *wake.ModelStore, current wake.Manifest) ([]byte, error) {
	blob, err := ms.LoadModel(ctx, current.Version)
	if err == nil {
		return blob, nil
	}
	versions, verr := ms.Versions(ctx)
	if verr != nil {
		return nil, err
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if blob, berr := ms.LoadModel(ctx, versions[i]); berr == nil {
			return blob, nil
		}
	}
	return nil, err
}

// lazySuppressor lets the orchestrator be constructed before the wake
// detector exists. Suppress is a no-op until bind.
type lazySuppressor struct {
	mu sync.Mutex
	s  pipeline.Suppressor
}

func (l *lazySuppressor) bind(s pipeline.Suppressor) {
	l.mu.Lock()
	l.s = s
	l.mu.Unlock()
}

func (l *lazySuppressor) Suppress() {
	l.mu.Lock()
	s := l.s
	l.mu.Unlock()
	if s != nil {
		s.Suppress()
	}
}

// micSource adapts the portaudio input stream to the frame interfaces
// shared by the wake detector and the transcriber. Capture at a device
// rate other than the target format is resampled on the fly.
type micSource struct {
	in     *portaudio.InputStream
	rs     *resampler.Converter
	format pcm.Format
	buf    []byte
}

func newMicSource(capture, target pcm.Format) (*micSource, error) {
	in, err := portaudio.NewInputStream(capture, wake.FrameDuration)
	if err != nil {
		return nil, err
	}
	m := &micSource{in: in, format: target}
	if capture != target {
		rs, err := resampler.New(micReader{in}, capture.SampleRate(), target.SampleRate())
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("mic resampler: %w", err)
		}
		m.rs = rs
	}
	return m, nil
}

// micReader exposes the input stream's byte interface as an io.Reader
// for the resampler.
type micReader struct {
	in *portaudio.InputStream
}

func (r micReader) Read(p []byte) (int, error) { return r.in.ReadBytes(p) }

func (m *micSource) Format() pcm.Format { return m.format }

func (m *micSource) ReadFrame(ctx context.Context) (*pcm.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame := pcm.NewFrame(m.format, wake.FrameDuration)
	if m.rs == nil {
		n, err := m.in.Read(frame.Samples)
		if err != nil {
			return nil, err
		}
		frame.Samples = frame.Samples[:n]
		return frame, nil
	}
	need := len(frame.Samples) * 2
	if cap(m.buf) < need {
		m.buf = make([]byte, need)
	}
	var n int
	for n == 0 {
		var err error
		n, err = m.rs.Read(m.buf[:need])
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	n /= 2
	for i := 0; i < n; i++ {
		frame.Samples[i] = int16(m.buf[i*2]) | int16(m.buf[i*2+1])<<8
	}
	frame.Samples = frame.Samples[:n]
	return frame, nil
}

func (m *micSource) Close() error {
	if m.rs != nil {
		m.rs.Close()
	}
	return m.in.Close()
}

// captureFormat maps a configured sample rate to a capture format.
func captureFormat(rate int) (pcm.Format, error) {
	switch rate {
	case 0, 16000:
		return pcm.L16Mono16K, nil
	case 24000:
		return pcm.L16Mono24K, nil
	case 48000:
		return pcm.L16Mono48K, nil
	}
	return 0, fmt.Errorf("unsupported capture rate %d (want 16000, 24000 or 48000)", rate)
}

func printResult(res pipeline.Result) {
	switch res.Kind {
	case pipeline.KindExecuted:
		fmt.Printf("executed %s: %s\n", res.Command.ID, res.Output)
	case pipeline.KindNoMatch:
		fmt.Println("no matching command")
		for _, sg := range res.Suggestions {
			fmt.Printf("  did you mean: %s (%.2f)\n", sg.Phrase, sg.Score)
		}
	case pipeline.KindBlocked:
		fmt.Printf("blocked: %s\n", res.Reason)
	case pipeline.KindCancelled:
		fmt.Printf("cancelled: %s\n", res.Reason)
	case pipeline.KindFailed:
		fmt.Printf("failed: %v\n", res.Err)
	}
}
