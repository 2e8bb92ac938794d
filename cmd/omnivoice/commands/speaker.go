package commands

import (
	"context"
	"math"
	"time"

	"github.com/charice-projects/omnivoice/pkg/audio/pcm"
	"github.com/charice-projects/omnivoice/pkg/audio/portaudio"
	"github.com/charice-projects/omnivoice/pkg/feedback"
)

// toneNotes maps each feedback cue to the note sequence it plays.
// Frequencies in Hz; each note lasts toneNote.
var toneNotes = map[feedback.Tone][]float64{
	feedback.ToneChime: {660, 880},
	feedback.ToneAlert: {880, 660},
	feedback.ToneError: {330, 330},
	feedback.ToneSiren: {660, 990, 660, 990},
}

const (
	toneNote   = 120 * time.Millisecond
	toneVolume = 12000 // of int16 full scale
)

// audioSpeaker plays feedback cues through the default output device and
// shows spoken text on the view. Speech synthesis stays with the platform
// TTS provider; only the tones are rendered locally.
type audioSpeaker struct {
	view *statusView
}

func (s *audioSpeaker) Speak(_ context.Context, text, _ string) error {
	s.view.say(text)
	return nil
}

func (s *audioSpeaker) PlayTone(ctx context.Context, tone feedback.Tone) error {
	notes := toneNotes[tone]
	if len(notes) == 0 {
		return nil
	}
	out, err := portaudio.NewOutputStream(pcm.L16Mono16K, 20*time.Millisecond)
	if err != nil {
		return err
	}
	defer out.Close()

	for _, freq := range notes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := out.Write(sine(freq, toneNote)); err != nil {
			return err
		}
	}
	return nil
}

// sine renders one note with a short attack/release ramp so consecutive
// notes do not click.
func sine(freq float64, d time.Duration) []int16 {
	rate := float64(pcm.L16Mono16K.SampleRate())
	n := int(pcm.L16Mono16K.SamplesInDuration(d))
	ramp := n / 10

	buf := make([]int16, n)
	for i := range buf {
		v := math.Sin(2 * math.Pi * freq * float64(i) / rate)
		gain := 1.0
		if i < ramp {
			gain = float64(i) / float64(ramp)
		} else if n-i < ramp {
			gain = float64(n-i) / float64(ramp)
		}
		buf[i] = int16(v * gain * toneVolume)
	}
	return buf
}
