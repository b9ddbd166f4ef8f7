// Copyright 2024 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package audiotest generates and analyzes synthetic test signals.
package audiotest

import (
	"math"
	"math/cmplx"
	"slices"

	"github.com/mjibson/go-dsp/fft"

	"github.com/livekit/adpcm/pkg/media"
)

// Wave is a sine component with 2^Ind periods per analyzed buffer.
type Wave struct {
	Ind int
	Amp int
}

// GenSignal fills dst with a sum of sine waves.
func GenSignal(dst media.PCM16Sample, waves []Wave) {
	for i := range dst {
		ifl := float64(i) / float64(len(dst))
		var v float64
		for _, w := range waves {
			v += float64(w.Amp) * math.Sin(ifl*2*math.Pi*(float64(int(1)<<w.Ind)))
		}
		dst[i] = int16(v)
	}
}

// FindSignal returns sine components found in src, strongest first.
func FindSignal(src media.PCM16Sample) []Wave {
	cmp := make([]complex128, len(src))
	for i, v := range src {
		cmp[i] = complex(float64(v), 0)
	}
	out := fft.FFT(cmp)
	var waves []Wave
	for i, v := range out[:len(out)/2] {
		if i == 0 {
			continue
		}
		a := 2 * cmplx.Abs(v) / float64(len(src))
		if a < 1 {
			continue
		}
		fi := int(math.Log2(float64(i)))
		waves = append(waves, Wave{Ind: fi, Amp: int(math.Round(a + 0.5))})
	}
	slices.SortFunc(waves, func(a, b Wave) int {
		return b.Amp - a.Amp
	})
	return waves
}

// SNR returns the signal to noise ratio of dec relative to src in dB.
// Only the common prefix of both signals is compared.
func SNR(src, dec media.PCM16Sample) float64 {
	n := min(len(src), len(dec))
	var sig, noise float64
	for i := 0; i < n; i++ {
		s := float64(src[i])
		d := s - float64(dec[i])
		sig += s * s
		noise += d * d
	}
	if noise == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(sig/noise)
}
