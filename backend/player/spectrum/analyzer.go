// Package spectrum computes band magnitude frames from PCM audio
// for driving a spectrum visualization.
package spectrum

import (
	"math"
	"math/cmplx"

	"github.com/go-audio/audio"
	"github.com/mjibson/go-dsp/fft"
)

const (
	// Number of bands in a spectrum frame.
	Bands = 64

	DefaultWindowSize  = 1024
	DefaultThresholdDB = -60
)

// Analyzer turns windows of PCM samples into spectrum frames.
// Magnitudes are in dB relative to a full-scale sine wave,
// clamped below at the threshold.
// An Analyzer is not safe for concurrent use.
type Analyzer struct {
	size      int
	bands     int
	threshold float64
	window    []float64
	mono      []float64
}

// NewAnalyzer creates an analyzer using FFT windows of size frames.
// size must be a power of two no smaller than 2*bands.
func NewAnalyzer(size, bands int, thresholdDB float64) *Analyzer {
	if bands <= 0 {
		bands = Bands
	}
	if size < 2*bands || size&(size-1) != 0 {
		size = DefaultWindowSize
	}
	a := &Analyzer{
		size:      size,
		bands:     bands,
		threshold: thresholdDB,
		window:    make([]float64, size),
		mono:      make([]float64, size),
	}
	// Hann window
	for i := range a.window {
		a.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return a
}

func (a *Analyzer) Size() int { return a.size }

// Threshold returns a frame with every band at the threshold (silence).
func (a *Analyzer) Threshold() []float32 {
	out := make([]float32, a.bands)
	for i := range out {
		out[i] = float32(a.threshold)
	}
	return out
}

// Analyze computes a frame from the last Size() frames of buf,
// down-mixing all channels to mono. Shorter buffers are zero-padded.
func (a *Analyzer) Analyze(buf *audio.FloatBuffer) []float32 {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 {
		return a.Threshold()
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	start := max(frames-a.size, 0)

	clear(a.mono)
	for f := start; f < frames; f++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += buf.Data[f*ch+c]
		}
		a.mono[f-start] = sum / float64(ch) * a.window[f-start]
	}

	coeffs := fft.FFTReal(a.mono)
	bins := a.size / 2
	perBand := bins / a.bands
	ref := float64(a.size) / 4 // peak of a full-scale sine under a Hann window

	out := make([]float32, a.bands)
	for b := range out {
		var mag float64
		for k := b * perBand; k < (b+1)*perBand; k++ {
			mag += cmplx.Abs(coeffs[k])
		}
		mag /= float64(perBand)
		db := 20 * math.Log10(mag/ref)
		if math.IsNaN(db) || db < a.threshold {
			db = a.threshold
		}
		out[b] = float32(db)
	}
	return out
}
