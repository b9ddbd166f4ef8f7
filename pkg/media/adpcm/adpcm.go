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

// Package adpcm implements the 4-bit IMA ADPCM codec.
//
// Every 16-bit sample becomes exactly one 4-bit code. The codec has no block
// headers: encoder and decoder stay in sync only as long as every code reaches
// the decoder in order, starting from the same State.
package adpcm

import (
	"fmt"
	"math"
)

const (
	// MaxStepIndex is the largest valid State.Index.
	MaxStepIndex = len(stepTable) - 1
	// MaxCode is the largest valid code.
	MaxCode = 0xf

	signBit = 0x8
)

// from the IMA ADPCM reference (Recommended Practices for Enhancing Digital Audio Compatibility)
var stepTable = [89]int32{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17,
	19, 21, 23, 25, 28, 31, 34, 37, 41, 45,
	50, 55, 60, 66, 73, 80, 88, 97, 107, 118,
	130, 143, 157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658, 724, 796,
	876, 963, 1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066,
	2272, 2499, 2749, 3024, 3327, 3660, 4026, 4428, 4871, 5358,
	5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794, 32767,
}

var indexTable = [16]int8{
	-1, -1, -1, -1, 2, 4, 6, 8,
	-1, -1, -1, -1, 2, 4, 6, 8,
}

// StepSize returns the quantizer step for a step index. The index is clamped to [0, MaxStepIndex].
func StepSize(index int) int {
	return int(stepTable[clampIndex(index)])
}

// IndexDelta returns the step index adjustment for a code. Only the low 4 bits of the code are used.
func IndexDelta(code byte) int {
	return int(indexTable[code&MaxCode])
}

// State is the running predictor and step index shared by the encoder and decoder.
//
// The zero value is the initial state of every stream.
type State struct {
	Predicted int16
	Index     int
}

func (s State) String() string {
	return fmt.Sprintf("State(pred=%d, index=%d)", s.Predicted, s.Index)
}

// Valid checks if the step index is within the table.
func (s State) Valid() bool {
	return s.Index >= 0 && s.Index <= MaxStepIndex
}

func (s State) normalize() State {
	s.Index = clampIndex(s.Index)
	return s
}

// advance dequantizes the code and moves the predictor and step index.
// It is the only place where both directions update the state.
func (s State) advance(code byte) State {
	step := stepTable[s.Index]

	diff := step >> 3
	if code&4 != 0 {
		diff += step
	}
	if code&2 != 0 {
		diff += step >> 1
	}
	if code&1 != 0 {
		diff += step >> 2
	}

	pred := int32(s.Predicted)
	if code&signBit != 0 {
		pred -= diff
	} else {
		pred += diff
	}
	return State{
		Predicted: clampSample(pred),
		Index:     clampIndex(s.Index + int(indexTable[code&MaxCode])),
	}
}

func clampSample(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	} else if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func clampIndex(i int) int {
	if i < 0 {
		return 0
	} else if i > MaxStepIndex {
		return MaxStepIndex
	}
	return i
}

// EncodeSample quantizes one sample against the state and returns the code with the next state.
//
// An out of range Index in st is clamped before use.
func EncodeSample(sample int16, st State) (byte, State) {
	st = st.normalize()
	step := stepTable[st.Index]

	diff := int32(sample) - int32(st.Predicted)
	var code byte
	if diff < 0 {
		code = signBit
		diff = -diff
	}

	if diff >= step {
		code |= 4
		diff -= step
	}
	step >>= 1
	if diff >= step {
		code |= 2
		diff -= step
	}
	step >>= 1
	if diff >= step {
		code |= 1
	}
	return code & MaxCode, st.advance(code)
}

// DecodeCode reconstructs one sample from a code and returns it with the next state.
//
// Codes above MaxCode are rejected with *InvalidInputError and the state is returned unchanged.
func DecodeCode(code byte, st State) (int16, State, error) {
	if code > MaxCode {
		return st.Predicted, st, &InvalidInputError{Code: code}
	}
	st = st.normalize().advance(code)
	return st.Predicted, st, nil
}

// EncodeTo encodes src into dst starting from st and returns the state after the last sample.
// The dst must be at least as long as src.
func EncodeTo(dst []byte, src []int16, st State) State {
	dst = dst[:len(src)]
	for i, v := range src {
		dst[i], st = EncodeSample(v, st)
	}
	return st
}

// DecodeTo decodes src into dst starting from st and returns the state after the last code.
// The dst must be at least as long as src.
//
// Decoding stops at the first invalid code. In that case dst holds the samples decoded before it,
// the returned state is the one preceding the invalid code and the error is *InvalidInputError.
func DecodeTo(dst []int16, src []byte, st State) (State, error) {
	dst = dst[:len(src)]
	st = st.normalize()
	for i, c := range src {
		if c > MaxCode {
			return st, &InvalidInputError{Code: c, Offset: i}
		}
		st = st.advance(c)
		dst[i] = st.Predicted
	}
	return st, nil
}

// Encode encodes a complete stream from the initial state.
func Encode(samples []int16) []byte {
	out := make([]byte, len(samples))
	EncodeTo(out, samples, State{})
	return out
}

// Decode decodes a complete stream from the initial state.
func Decode(codes []byte) ([]int16, error) {
	out := make([]int16, len(codes))
	if _, err := DecodeTo(out, codes, State{}); err != nil {
		return nil, err
	}
	return out, nil
}

// InvalidInputError is returned when a decoder receives a value that is not a 4-bit code.
type InvalidInputError struct {
	Code   byte
	Offset int
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("adpcm: invalid code %#x at offset %d", e.Code, e.Offset)
}
