// Package resampler converts streaming L16 mono audio between sample
// rates using a pure Go polyphase engine, with no CGO dependencies.
//
// It is used to bring microphone capture at a device-native rate down
// to the 16kHz the wake-word detector and transcriber consume:
//
//	rs, err := resampler.New(mic, 48000, 16000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rs.Close()
//	// Read 16kHz audio from rs
package resampler
