// Copyright 2023 LiveKit, Inc.
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

package rtp

import (
	"fmt"
	"math/rand"

	"github.com/pion/rtp"

	"github.com/livekit/adpcm/pkg/media"
)

type Writer interface {
	WriteRTP(p *rtp.Packet) error
}

type Handler interface {
	HandleRTP(p *rtp.Packet) error
}

type HandlerFunc func(p *rtp.Packet) error

func (fnc HandlerFunc) HandleRTP(p *rtp.Packet) error {
	return fnc(p)
}

type WriterFunc func(p *rtp.Packet) error

func (fnc WriterFunc) WriteRTP(p *rtp.Packet) error {
	return fnc(p)
}

type Packet = rtp.Packet

// NewStream creates an outgoing RTP stream with a random SSRC.
// Each payload advances the timestamp by packetDur clock ticks.
func NewStream(w Writer, typ byte, packetDur uint32) *Stream {
	s := &Stream{w: w, packetDur: packetDur}
	s.p = rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    typ,
			SSRC:           rand.Uint32(),
			Timestamp:      0,
			SequenceNumber: 0,
		},
	}
	return s
}

type Stream struct {
	w         Writer
	p         Packet
	packetDur uint32
}

func (s *Stream) SSRC() uint32 {
	return s.p.Header.SSRC
}

func (s *Stream) WritePayload(data []byte) error {
	s.p.Payload = data
	if err := s.w.WriteRTP(&s.p); err != nil {
		return err
	}
	s.p.Header.Timestamp += s.packetDur
	s.p.Header.SequenceNumber++
	return nil
}

func NewMediaStreamOut[T ~[]byte](s *Stream, sampleRate int) *MediaStreamOut[T] {
	return &MediaStreamOut[T]{s: s, sampleRate: sampleRate}
}

type MediaStreamOut[T ~[]byte] struct {
	s          *Stream
	sampleRate int
}

func (s *MediaStreamOut[T]) String() string {
	return fmt.Sprintf("RTP(%d, ssrc=%d)", s.s.p.PayloadType, s.s.SSRC())
}

func (s *MediaStreamOut[T]) SampleRate() int {
	return s.sampleRate
}

func (s *MediaStreamOut[T]) WriteSample(sample T) error {
	return s.s.WritePayload([]byte(sample))
}

func NewMediaStreamIn[T ~[]byte](w media.Writer[T]) *MediaStreamIn[T] {
	return &MediaStreamIn[T]{w: w}
}

// MediaStreamIn forwards RTP payloads to a media writer.
//
// Packets are expected in order. Gaps in sequence numbers are counted as lost,
// late or duplicate packets are discarded. Nothing is done to recover the lost
// media: for differential codecs the decoder output stays diverged afterwards.
type MediaStreamIn[T ~[]byte] struct {
	w       media.Writer[T]
	started bool
	next    uint16
	lost    uint64
	late    uint64
	// OnLoss is called with the number of packets missing before the current one.
	OnLoss func(n int)
}

// Lost returns the number of packets detected as missing.
func (s *MediaStreamIn[T]) Lost() uint64 {
	return s.lost
}

// Late returns the number of discarded out of order or duplicate packets.
func (s *MediaStreamIn[T]) Late() uint64 {
	return s.late
}

func (s *MediaStreamIn[T]) HandleRTP(p *rtp.Packet) error {
	seq := p.SequenceNumber
	if s.started && seq != s.next {
		gap := seq - s.next
		if gap >= 0x8000 {
			s.late++
			return nil
		}
		s.lost += uint64(gap)
		if s.OnLoss != nil {
			s.OnLoss(int(gap))
		}
	}
	s.started = true
	s.next = seq + 1
	return s.w.WriteSample(T(p.Payload))
}
