// Package audio converts captured or recorded sound into 16 kHz mono float32
// PCM, the input format of the speech engines.
package audio

import (
	"errors"
	"math"
)

// SampleRate is the rate every capture path delivers.
const SampleRate = 16000

// SilenceThresholdRMS separates speech from background noise.
const SilenceThresholdRMS = 0.015

// ErrNoSpeech is returned when a capture window holds only silence.
var ErrNoSpeech = errors.New("no speech captured")

// FrameRMS returns the root mean square level of f.
func FrameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}

// HasSpeech reports whether any 20ms frame of pcm rises above the silence threshold.
func HasSpeech(pcm []float32) bool {
	const frame = SampleRate / 50
	for start := 0; start < len(pcm); start += frame {
		end := start + frame
		if end > len(pcm) {
			end = len(pcm)
		}
		if FrameRMS(pcm[start:end]) > SilenceThresholdRMS {
			return true
		}
	}
	return false
}

func intSliceToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16SliceToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// resampleLinear converts between sample rates by linear interpolation.
func resampleLinear(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
