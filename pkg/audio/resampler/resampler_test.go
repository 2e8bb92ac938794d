package resampler

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

// encode packs int16 samples as little-endian bytes.
func encode(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

func TestNew_InvalidRates(t *testing.T) {
	if _, err := New(bytes.NewReader(nil), 0, 16000); err == nil {
		t.Fatal("expected error for zero source rate")
	}
	if _, err := New(bytes.NewReader(nil), 16000, -1); err == nil {
		t.Fatal("expected error for negative target rate")
	}
}

func TestConverter_Passthrough(t *testing.T) {
	samples := make([]int16, 320)
	for i := range samples {
		samples[i] = int16(i * 37)
	}
	src := encode(samples)

	c, err := New(bytes.NewReader(src), 16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got, err := io.ReadAll(c)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Error("passthrough changed the audio")
	}
}

func TestConverter_Downsample(t *testing.T) {
	// One second of silence at 48kHz should come out near one second
	// at 16kHz. The engine may hold back a little tail latency.
	src := make([]byte, 48000*2)

	c, err := New(bytes.NewReader(src), 48000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got, err := io.ReadAll(c)
	if err != nil {
		t.Fatal(err)
	}
	n := len(got) / 2
	if n < 15000 || n > 17000 {
		t.Errorf("got %d samples, want about 16000", n)
	}
	if len(got)%2 != 0 {
		t.Errorf("output not sample aligned: %d bytes", len(got))
	}
}

func TestConverter_LeftoverAcrossReads(t *testing.T) {
	src := make([]byte, 16000*2)

	c, err := New(bytes.NewReader(src), 16000, 48000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	// Small reads force the converter to stash excess engine output
	// and drain it on later calls.
	total := 0
	buf := make([]byte, 64)
	for {
		n, err := c.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if n%2 != 0 {
			t.Fatalf("read returned partial sample: %d bytes", n)
		}
	}
	if total/2 < 45000 {
		t.Errorf("got %d samples, want about 48000", total/2)
	}
}

func TestConverter_ShortBuffer(t *testing.T) {
	c, err := New(bytes.NewReader(encode([]int16{1, 2})), 16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Read(make([]byte, 1)); err != io.ErrShortBuffer {
		t.Errorf("got %v, want io.ErrShortBuffer", err)
	}
}

func TestConverter_ReadAfterClose(t *testing.T) {
	c, err := New(bytes.NewReader(make([]byte, 64)), 48000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Read(make([]byte, 32)); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("got %v, want io.ErrClosedPipe", err)
	}
}

func TestAlignedReader(t *testing.T) {
	// Source that returns one byte per call: every sample straddles
	// two reads.
	src := encode([]int16{100, 200, 300})
	r := newAlignedReader(iotest.OneByteReader(bytes.NewReader(src)), 2)

	var got []byte
	buf := make([]byte, 4)
	for {
		n, err := r.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(got, src) {
		t.Errorf("got %v, want %v", got, src)
	}
}

func TestAlignedReader_UnexpectedEOF(t *testing.T) {
	r := newAlignedReader(bytes.NewReader([]byte{1, 2, 3}), 2)

	buf := make([]byte, 8)
	n, _ := r.Read(buf)
	if n != 2 {
		t.Fatalf("got %d bytes, want 2", n)
	}
	if _, err := r.Read(buf); err != io.ErrUnexpectedEOF {
		t.Errorf("got %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestAlignedReader_ShortBuffer(t *testing.T) {
	r := newAlignedReader(bytes.NewReader([]byte{1, 2}), 2)
	if _, err := r.Read(make([]byte, 1)); err != io.ErrShortBuffer {
		t.Errorf("got %v, want io.ErrShortBuffer", err)
	}
}
