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
	"fmt"
	"io"

	"github.com/livekit/adpcm/pkg/media"
)

// PackedLen returns the number of bytes needed to pack n codes.
func PackedLen(n int) int {
	return (n + 1) / 2
}

// Pack appends codes to dst, two per byte, first code in the low nibble.
// An odd trailing code is padded with a zero high nibble.
// Bits above the low nibble of every code are ignored.
func Pack(dst []byte, codes []byte) []byte {
	n := len(codes) &^ 1
	for i := 0; i < n; i += 2 {
		dst = append(dst, codes[i]&MaxCode|(codes[i+1]&MaxCode)<<4)
	}
	if n < len(codes) {
		dst = append(dst, codes[n]&MaxCode)
	}
	return dst
}

// Unpack appends two codes per packed byte to dst, low nibble first.
func Unpack(dst []byte, packed []byte) []byte {
	for _, b := range packed {
		dst = append(dst, b&MaxCode, b>>4)
	}
	return dst
}

// PackedSample is a frame of codes packed two per byte.
type PackedSample []byte

var _ media.Frame = PackedSample(nil)

func (s PackedSample) Size() int {
	return len(s)
}

func (s PackedSample) CopyTo(dst []byte) (int, error) {
	if len(dst) < len(s) {
		return 0, io.ErrShortBuffer
	}
	return copy(dst, s), nil
}

func (s PackedSample) Unpack() Sample {
	return Unpack(make(Sample, 0, 2*len(s)), s)
}

type PackedWriter = media.Writer[PackedSample]

// NewPacker returns a writer that packs codes for w.
// An odd code at the end of a frame is held back and paired with the first code of the next frame.
func NewPacker(w PackedWriter) *Packer {
	return &Packer{w: w}
}

type Packer struct {
	w       PackedWriter
	buf     PackedSample
	pending byte
	hasPend bool
}

func (p *Packer) String() string {
	return fmt.Sprintf("IMA-ADPCM(pack) -> %s", p.w)
}

func (p *Packer) SampleRate() int {
	return p.w.SampleRate()
}

func (p *Packer) WriteSample(in Sample) error {
	p.buf = p.buf[:0]
	if p.hasPend && len(in) > 0 {
		p.buf = append(p.buf, p.pending|(in[0]&MaxCode)<<4)
		p.hasPend = false
		in = in[1:]
	}
	n := len(in) &^ 1
	p.buf = Pack(p.buf, in[:n])
	if n < len(in) {
		p.pending = in[n] & MaxCode
		p.hasPend = true
	}
	if len(p.buf) == 0 {
		return nil
	}
	return p.w.WriteSample(p.buf)
}

// Flush writes a held back code, padded with a zero high nibble.
func (p *Packer) Flush() error {
	if !p.hasPend {
		return nil
	}
	p.hasPend = false
	p.buf = append(p.buf[:0], p.pending)
	return p.w.WriteSample(p.buf)
}

// NewUnpacker returns a writer that unpacks codes for w.
func NewUnpacker(w Writer) *Unpacker {
	return &Unpacker{w: w}
}

type Unpacker struct {
	w   Writer
	buf Sample
}

func (u *Unpacker) String() string {
	return fmt.Sprintf("IMA-ADPCM(unpack) -> %s", u.w)
}

func (u *Unpacker) SampleRate() int {
	return u.w.SampleRate()
}

func (u *Unpacker) WriteSample(in PackedSample) error {
	u.buf = Unpack(u.buf[:0], in)
	return u.w.WriteSample(u.buf)
}
