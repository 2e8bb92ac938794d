package commands

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/charice-projects/omnivoice/pkg/audio/fbank"
	"github.com/charice-projects/omnivoice/pkg/audio/pcm"
	"github.com/charice-projects/omnivoice/pkg/cli"
	"github.com/charice-projects/omnivoice/pkg/onnx"
	"github.com/charice-projects/omnivoice/pkg/wake"
)

var trainWord string

var trainCmd = &cobra.Command{
	Use:   "train <sample.pcm> <sample.pcm> <sample.pcm> [...]",
	Short: "Train a personalized wake-word profile",
	Long: `Train derives a per-user verification profile from recorded wake-word
samples and installs it as the current model version. At least three
samples are required; each file holds raw little-endian 16 kHz mono
16-bit PCM.

The base inference artifact is left untouched; training only fits the
acceptance threshold and reference embedding.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainWord, "wake-word", "", "wake word label (default from config)")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	word := trainWord
	if word == "" {
		word = cfg.Wake.Word
	}

	ctx := cmd.Context()
	ms, err := modelStore(cfg)
	if err != nil {
		return err
	}

	current, err := ms.Current(ctx)
	if err != nil {
		return fmt.Errorf("no base model installed: %w", err)
	}
	blob, err := loadInferenceBlob(ctx, ms, current)
	if err != nil {
		return err
	}

	env, err := onnx.NewEnv("omnivoice-train")
	if err != nil {
		return fmt.Errorf("%w: %v", wake.ErrModelLoad, err)
	}
	defer env.Close()

	fcfg := fbank.DefaultConfig()
	frames := fbank.New(fcfg).NumFrames(int(pcm.L16Mono16K.SamplesInDuration(wake.DefaultWindow)))
	embedder, err := wake.NewONNXClassifier(env, blob, frames, fcfg.NumMels)
	if err != nil {
		return err
	}
	defer embedder.Close()

	samples := make([][]float32, 0, len(args))
	ext := fbank.New(fcfg)
	for _, path := range args {
		features, err := sampleFeatures(ext, path)
		if err != nil {
			return fmt.Errorf("sample %s: %w", path, err)
		}
		samples = append(samples, features)
	}

	m, err := wake.NewTrainer(embedder, ms).Train(ctx, samples, word)
	if err != nil {
		return err
	}

	cli.PrintSuccess("trained %s: version %s, threshold %.2f (%d samples)",
		word, m.Version, m.Threshold, len(args))
	return cli.Output(m, cli.OutputOptions{Format: cli.FormatYAML})
}

// sampleFeatures reads one raw PCM sample file and extracts its log-mel
// features.
func sampleFeatures(ext *fbank.Extractor, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("empty sample")
	}
	pcms := make([]int16, len(data)/2)
	for i := range pcms {
		pcms[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	features := ext.ExtractFromInt16(pcms)
	if len(features) == 0 {
		return nil, fmt.Errorf("sample too short")
	}
	fbank.CMVN(features)
	return fbank.Flatten(features), nil
}
