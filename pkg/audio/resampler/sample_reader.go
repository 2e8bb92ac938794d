package resampler

import "io"

// alignedReader returns reads in whole-sample multiples, holding back a
// trailing partial sample until the rest of it arrives.
type alignedReader struct {
	r    io.Reader
	size int

	rem  []byte
	nrem int
}

func newAlignedReader(r io.Reader, size int) *alignedReader {
	return &alignedReader{r: r, size: size, rem: make([]byte, size-1)}
}

func (a *alignedReader) Read(p []byte) (int, error) {
	if len(p) < a.size {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/a.size*a.size]

	n := 0
	if a.nrem > 0 {
		n = copy(p, a.rem[:a.nrem])
		a.nrem = 0
	}

	rn, err := a.r.Read(p[n:])
	n += rn
	if err != nil {
		if err == io.EOF && n%a.size != 0 {
			return n, io.ErrUnexpectedEOF
		}
		return n, err
	}
	if mod := n % a.size; mod != 0 {
		n -= mod
		a.nrem = copy(a.rem, p[n:n+mod])
	}
	return n, nil
}
