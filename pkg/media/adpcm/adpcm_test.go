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

package adpcm

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livekit/adpcm/pkg/audiotest"
	"github.com/livekit/adpcm/pkg/media"
)

func randSamples(seed uint64, n int) []int16 {
	r := rand.New(rand.NewSource(int64(seed ^ 0x9e3779b97f4a7c15)))
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(r.Intn(1<<16) - 1<<15)
	}
	return out
}

func sineSamples(n int, freq, rate float64, amp float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return out
}

func absDiff(a, b int16) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

func TestTables(t *testing.T) {
	require.Len(t, stepTable, 89)
	require.Equal(t, 88, MaxStepIndex)
	require.EqualValues(t, 7, stepTable[0])
	require.EqualValues(t, 32767, stepTable[MaxStepIndex])
	for i := 1; i < len(stepTable); i++ {
		require.Greater(t, stepTable[i], stepTable[i-1], "index %d", i)
	}
	for c := byte(0); c <= MaxCode; c++ {
		// sign bit does not affect adaptation
		require.Equal(t, IndexDelta(c&^signBit), IndexDelta(c|signBit))
	}
	require.Equal(t, []int{-1, -1, -1, -1, 2, 4, 6, 8}, func() []int {
		var out []int
		for c := byte(0); c < 8; c++ {
			out = append(out, IndexDelta(c))
		}
		return out
	}())
	require.Equal(t, 7, StepSize(-5))
	require.Equal(t, 32767, StepSize(1000))
}

func TestVectors(t *testing.T) {
	t.Run("encode positive", func(t *testing.T) {
		code, st := EncodeSample(1000, State{})
		require.Equal(t, byte(7), code)
		require.Equal(t, State{Predicted: 11, Index: 8}, st)
	})
	t.Run("decode", func(t *testing.T) {
		v, st, err := DecodeCode(7, State{})
		require.NoError(t, err)
		require.Equal(t, int16(11), v)
		require.Equal(t, State{Predicted: 11, Index: 8}, st)
	})
	t.Run("encode negative", func(t *testing.T) {
		code, st := EncodeSample(-500, State{Predicted: 11, Index: 8})
		require.Equal(t, byte(15), code)
		require.Equal(t, State{Predicted: -19, Index: 16}, st)
	})
	t.Run("stream", func(t *testing.T) {
		codes := Encode([]int16{1000, -500})
		require.Equal(t, []byte{7, 15}, codes)
		out, err := Decode(codes)
		require.NoError(t, err)
		require.Equal(t, []int16{11, -19}, out)
	})
	t.Run("zero", func(t *testing.T) {
		code, st := EncodeSample(0, State{})
		require.Equal(t, byte(0), code)
		require.Equal(t, State{Predicted: 0, Index: 0}, st)
	})
}

func TestClamp(t *testing.T) {
	for c := byte(0); c <= MaxCode; c++ {
		_, st, err := DecodeCode(c, State{Index: MaxStepIndex})
		require.NoError(t, err)
		if IndexDelta(c) > 0 {
			require.Equal(t, MaxStepIndex, st.Index, "code %d", c)
		} else {
			require.Equal(t, MaxStepIndex+IndexDelta(c), st.Index, "code %d", c)
		}

		_, st, err = DecodeCode(c, State{Index: 0})
		require.NoError(t, err)
		if IndexDelta(c) < 0 {
			require.Equal(t, 0, st.Index, "code %d", c)
		} else {
			require.Equal(t, IndexDelta(c), st.Index, "code %d", c)
		}
	}

	v, _, err := DecodeCode(7, State{Predicted: math.MaxInt16, Index: MaxStepIndex})
	require.NoError(t, err)
	require.Equal(t, int16(math.MaxInt16), v)

	v, _, err = DecodeCode(15, State{Predicted: math.MinInt16, Index: MaxStepIndex})
	require.NoError(t, err)
	require.Equal(t, int16(math.MinInt16), v)

	code, st := EncodeSample(math.MaxInt16, State{Predicted: math.MinInt16, Index: MaxStepIndex})
	require.Equal(t, byte(7), code)
	require.True(t, st.Valid())

	// out of range seeds are clamped instead of indexing past the table
	code, st = EncodeSample(1000, State{Index: 200})
	require.Equal(t, byte(0), code)
	require.Equal(t, MaxStepIndex-1, st.Index)
	_, st, err = DecodeCode(0, State{Index: -3})
	require.NoError(t, err)
	require.Equal(t, 0, st.Index)
}

func TestInvalidCode(t *testing.T) {
	_, st, err := DecodeCode(16, State{Predicted: 5, Index: 3})
	var e *InvalidInputError
	require.True(t, errors.As(err, &e))
	require.Equal(t, byte(16), e.Code)
	require.Equal(t, State{Predicted: 5, Index: 3}, st)

	_, err = Decode([]byte{1, 2, 0xff, 3})
	require.True(t, errors.As(err, &e))
	require.Equal(t, 2, e.Offset)
	require.Equal(t, byte(0xff), e.Code)

	dst := make([]int16, 4)
	st, err = DecodeTo(dst, []byte{7, 15, 0x10, 0}, State{})
	require.Error(t, err)
	require.Equal(t, State{Predicted: -19, Index: 16}, st)
	require.Equal(t, []int16{11, -19, 0, 0}, dst)
}

func TestInvariants(t *testing.T) {
	var enc, dec State
	for _, v := range randSamples(1, 20000) {
		var code byte
		code, enc = EncodeSample(v, enc)
		require.LessOrEqual(t, code, byte(MaxCode))
		require.True(t, enc.Valid(), "%v", enc)

		var err error
		_, dec, err = DecodeCode(code, dec)
		require.NoError(t, err)
		require.True(t, dec.Valid(), "%v", dec)
		require.Equal(t, enc, dec)
	}
}

func TestMirror(t *testing.T) {
	src := append(randSamples(2, 5000), sineSamples(5000, 440, 8000, 12000)...)
	var st State
	for _, v := range src {
		code, next := EncodeSample(v, st)
		out, dnext, err := DecodeCode(code, st)
		require.NoError(t, err)
		require.Equal(t, next, dnext)
		require.Equal(t, next.Predicted, out)
		st = next
	}
}

func TestDeterminism(t *testing.T) {
	src := randSamples(3, 4096)
	require.Equal(t, Encode(src), Encode(src))

	st := State{Predicted: -1234, Index: 40}
	for _, v := range src[:256] {
		c1, s1 := EncodeSample(v, st)
		c2, s2 := EncodeSample(v, st)
		require.Equal(t, c1, c2)
		require.Equal(t, s1, s2)
	}
}

func TestErrorBound(t *testing.T) {
	cases := map[string][]int16{
		"random": randSamples(4, 10000),
		"sine":   sineSamples(10000, 300, 8000, 20000),
		"square": func() []int16 {
			out := make([]int16, 4000)
			for i := range out {
				if (i/50)%2 == 0 {
					out[i] = math.MaxInt16
				} else {
					out[i] = math.MinInt16
				}
			}
			return out
		}(),
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			codes := Encode(src)
			require.Len(t, codes, len(src))
			dec, err := Decode(codes)
			require.NoError(t, err)
			require.Len(t, dec, len(src))

			// Each reconstructed sample is within one quantizer step of the input,
			// unless the input jumped further than the quantizer can follow in one code.
			// In that case the error still shrinks.
			var prev State
			for i, v := range src {
				step := StepSize(prev.Index)
				jump := absDiff(v, prev.Predicted)
				require.LessOrEqual(t, absDiff(v, dec[i]), max(step, jump), "sample %d", i)
				_, prev = EncodeSample(v, prev)
			}
		})
	}
}

func TestSineQuality(t *testing.T) {
	src := make(media.PCM16Sample, 1024)
	inp := []audiotest.Wave{
		{Ind: 3, Amp: 8000},
		{Ind: 5, Amp: 4000},
		{Ind: 6, Amp: 2000},
	}
	audiotest.GenSignal(src, inp)

	dec, err := Decode(Encode(src))
	require.NoError(t, err)
	require.Greater(t, audiotest.SNR(src, dec), 15.0)

	out := audiotest.FindSignal(dec)
	require.GreaterOrEqual(t, len(out), len(inp))
	for i, w := range inp {
		require.Equal(t, w.Ind, out[i].Ind)
		require.InEpsilon(t, w.Amp, out[i].Amp, 0.1)
	}
}

func TestChunked(t *testing.T) {
	src := sineSamples(3000, 1000, 8000, 15000)
	full := Encode(src)

	var (
		st    State
		codes []byte
	)
	for _, n := range []int{1, 7, 160, 999, 1833} {
		buf := make([]byte, n)
		st = EncodeTo(buf, src[len(codes):len(codes)+n], st)
		codes = append(codes, buf...)
	}
	require.Equal(t, full, codes)

	want, err := Decode(full)
	require.NoError(t, err)

	var (
		dst  State
		outs []int16
	)
	for _, n := range []int{1000, 1, 1999} {
		buf := make([]int16, n)
		dst, err = DecodeTo(buf, full[len(outs):len(outs)+n], dst)
		require.NoError(t, err)
		outs = append(outs, buf...)
	}
	require.Equal(t, want, outs)
	require.Equal(t, st, dst)
}

func TestLossDiverges(t *testing.T) {
	src := sineSamples(2000, 440, 8000, 10000)
	codes := Encode(src)
	want, err := Decode(codes)
	require.NoError(t, err)

	lossy := append([]byte{}, codes[:500]...)
	lossy = append(lossy, codes[501:]...)
	got, err := Decode(lossy)
	require.NoError(t, err)
	require.Len(t, got, len(src)-1)
	require.Equal(t, want[:500], got[:500])
	// the decoder has no way to notice the missing code
	require.NotEqual(t, want[501:], got[500:])
}

func BenchmarkEncode(b *testing.B) {
	src := sineSamples(8000, 440, 8000, 12000)
	dst := make([]byte, len(src))
	b.SetBytes(int64(len(src) * 2))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncodeTo(dst, src, State{})
	}
}

func BenchmarkDecode(b *testing.B) {
	codes := Encode(sineSamples(8000, 440, 8000, 12000))
	dst := make([]int16, len(codes))
	b.SetBytes(int64(len(codes)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = DecodeTo(dst, codes, State{})
	}
}
