package fbank

import (
	"math"
	"math/cmplx"
)

// fft runs an in-place radix-2 Cooley-Tukey transform. len(x) must be a
// power of two.
func fft(x []complex128) {
	n := len(x)
	if n <= 1 {
		return
	}

	// Reorder by bit-reversed index.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j |= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := cmplx.Exp(complex(0, -2*math.Pi/float64(size)))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := start; k < start+half; k++ {
				u, v := x[k], x[k+half]*w
				x[k] = u + v
				x[k+half] = u - v
				w *= step
			}
		}
	}
}

// hamming returns an n-point Hamming window.
func hamming(n int) []float64 {
	w := make([]float64, n)
	c := 2 * math.Pi / float64(n-1)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(c*float64(i))
	}
	return w
}

func melScale(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }

func melFreq(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

// triangularFilters builds numMels triangular mel-spaced filters over
// the fftSize/2+1 power-spectrum bins between low and high Hz.
func triangularFilters(numMels, fftSize, sampleRate int, low, high float64) [][]float64 {
	nbins := fftSize/2 + 1

	// numMels+2 filter edges equally spaced on the mel scale, mapped
	// to spectrum bins.
	lowMel, highMel := melScale(low), melScale(high)
	edges := make([]int, numMels+2)
	for i := range edges {
		mel := lowMel + (highMel-lowMel)*float64(i)/float64(numMels+1)
		bin := int(math.Round(melFreq(mel) * float64(fftSize) / float64(sampleRate)))
		edges[i] = min(bin, nbins-1)
	}
	// Rounding can collapse adjacent edges; keep every filter at least
	// one bin wide.
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			edges[i] = edges[i-1] + 1
		}
	}

	bank := make([][]float64, numMels)
	for m := range bank {
		f := make([]float64, nbins)
		lo, mid, hi := edges[m], edges[m+1], edges[m+2]
		for k := lo; k < mid && k < nbins; k++ {
			f[k] = float64(k-lo) / float64(mid-lo)
		}
		for k := mid; k <= hi && k < nbins; k++ {
			f[k] = float64(hi-k) / float64(hi-mid)
		}
		bank[m] = f
	}
	return bank
}
