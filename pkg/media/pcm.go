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

package media

import (
	"encoding/binary"
	"io"
)

// PCM16Sample is a frame of signed 16-bit linear samples.
type PCM16Sample []int16

type PCM16Writer = Writer[PCM16Sample]

var _ Frame = PCM16Sample(nil)

func (s PCM16Sample) Size() int {
	return len(s) * 2
}

func (s PCM16Sample) CopyTo(dst []byte) (int, error) {
	if len(dst) < s.Size() {
		return 0, io.ErrShortBuffer
	}
	for i, v := range s {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(v))
	}
	return s.Size(), nil
}

func (s PCM16Sample) Encode() LPCM16Sample {
	out := make(LPCM16Sample, s.Size())
	_, _ = s.CopyTo(out)
	return out
}

// LPCM16Sample is a little-endian byte representation of PCM16Sample.
type LPCM16Sample []byte

var _ Frame = LPCM16Sample(nil)

func (s LPCM16Sample) Size() int {
	return len(s)
}

func (s LPCM16Sample) CopyTo(dst []byte) (int, error) {
	if len(dst) < len(s) {
		return 0, io.ErrShortBuffer
	}
	return copy(dst, s), nil
}

func (s LPCM16Sample) Decode() PCM16Sample {
	out := make(PCM16Sample, len(s)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(s[2*i:]))
	}
	return out
}

func DecodePCM(w PCM16Writer) Writer[LPCM16Sample] {
	return WriterFunc[LPCM16Sample](w.SampleRate(), func(in LPCM16Sample) error {
		return w.WriteSample(in.Decode())
	})
}

func EncodePCM(w Writer[LPCM16Sample]) PCM16Writer {
	return WriterFunc[PCM16Sample](w.SampleRate(), func(in PCM16Sample) error {
		return w.WriteSample(in.Encode())
	})
}
