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
	"fmt"
	"io"

	"github.com/livekit/adpcm/pkg/media"
	"github.com/livekit/adpcm/pkg/media/rtp"
)

const (
	SDPName = "IMA-ADPCM/8000"
	// RTPPayloadType is the dynamic payload type used when none is negotiated.
	RTPPayloadType = 96
)

func init() {
	media.RegisterCodec(rtp.NewAudioCodec(media.CodecInfo{
		SDPName:     SDPName,
		SampleRate:  media.DefSampleRate,
		RTPDefType:  RTPPayloadType,
		RTPIsStatic: false,
		Priority:    -30,
	}, decodePacked, encodePacked))
}

func decodePacked(w media.PCM16Writer) PackedWriter {
	return NewUnpacker(NewDecoder(w))
}

func encodePacked(w PackedWriter) media.PCM16Writer {
	return NewEncoder(NewPacker(w))
}

// Sample is a frame of codes, one code per byte.
type Sample []byte

var _ media.Frame = Sample(nil)

func (s Sample) Size() int {
	return len(s)
}

func (s Sample) CopyTo(dst []byte) (int, error) {
	if len(dst) < len(s) {
		return 0, io.ErrShortBuffer
	}
	return copy(dst, s), nil
}

// Decode decodes the frame from the initial state.
func (s Sample) Decode() (media.PCM16Sample, error) {
	return Decode(s)
}

// Encode encodes the frame from the initial state.
func (s *Sample) Encode(data media.PCM16Sample) {
	*s = Encode(data)
}

func (s Sample) Pack() PackedSample {
	return Pack(make(PackedSample, 0, PackedLen(len(s))), s)
}

type Writer = media.Writer[Sample]

// NewDecoder returns a writer that decodes codes for w.
// The decoder state is carried between frames.
func NewDecoder(w media.PCM16Writer) *Decoder {
	return &Decoder{w: w}
}

type Decoder struct {
	w   media.PCM16Writer
	st  State
	pos int
	buf media.PCM16Sample
}

func (d *Decoder) String() string {
	return fmt.Sprintf("IMA-ADPCM(decode) -> %s", d.w)
}

func (d *Decoder) SampleRate() int {
	return d.w.SampleRate()
}

// State returns the decoder state after the last decoded code.
func (d *Decoder) State() State {
	return d.st
}

// SetState seeds the decoder, for example with a state saved by a previous session.
func (d *Decoder) SetState(st State) {
	d.st = st.normalize()
}

// Position returns the number of codes decoded since creation or the last Reset.
func (d *Decoder) Position() int {
	return d.pos
}

func (d *Decoder) Reset() {
	d.st = State{}
	d.pos = 0
}

// WriteSample decodes the frame and forwards it.
// If the frame contains an invalid code, samples before it are still forwarded
// and *InvalidInputError is returned with Offset counted from the start of the stream.
func (d *Decoder) WriteSample(in Sample) error {
	if len(in) >= cap(d.buf) {
		d.buf = make(media.PCM16Sample, len(in))
	} else {
		d.buf = d.buf[:len(in)]
	}
	st, err := DecodeTo(d.buf, in, d.st)
	d.st = st
	if err != nil {
		var e *InvalidInputError
		if !errors.As(err, &e) {
			return err
		}
		n := e.Offset
		e.Offset += d.pos
		d.pos += n
		if n > 0 {
			if werr := d.w.WriteSample(d.buf[:n]); werr != nil {
				return werr
			}
		}
		return err
	}
	d.pos += len(in)
	return d.w.WriteSample(d.buf)
}

// NewEncoder returns a writer that encodes samples for w.
// The encoder state is carried between frames.
func NewEncoder(w Writer) *Encoder {
	return &Encoder{w: w}
}

type Encoder struct {
	w   Writer
	st  State
	buf Sample
}

func (e *Encoder) String() string {
	return fmt.Sprintf("IMA-ADPCM(encode) -> %s", e.w)
}

func (e *Encoder) SampleRate() int {
	return e.w.SampleRate()
}

// State returns the encoder state after the last encoded sample.
func (e *Encoder) State() State {
	return e.st
}

// SetState seeds the encoder, for example with a state saved by a previous session.
func (e *Encoder) SetState(st State) {
	e.st = st.normalize()
}

func (e *Encoder) Reset() {
	e.st = State{}
}

func (e *Encoder) WriteSample(in media.PCM16Sample) error {
	if len(in) >= cap(e.buf) {
		e.buf = make(Sample, len(in))
	} else {
		e.buf = e.buf[:len(in)]
	}
	e.st = EncodeTo(e.buf, in, e.st)
	return e.w.WriteSample(e.buf)
}
