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

package service

import (
	"context"
	"fmt"

	"github.com/livekit/adpcm/pkg/errors"
	"github.com/livekit/adpcm/pkg/media"
	"github.com/livekit/adpcm/pkg/media/adpcm"
	"github.com/livekit/adpcm/pkg/media/loss"
	"github.com/livekit/adpcm/pkg/media/rtp"
	"github.com/livekit/adpcm/pkg/stats"
	"github.com/livekit/adpcm/pkg/wavfile"
)

func (s *Service) rtpCodec() (rtp.AudioEncoder[adpcm.PackedSample], error) {
	c := rtp.CodecByPayloadType(adpcm.RTPPayloadType)
	ac, ok := c.(rtp.AudioEncoder[adpcm.PackedSample])
	if !ok {
		return nil, errors.ErrCodecDisabled(adpcm.SDPName)
	}
	if !media.CodecEnabled(c) {
		return nil, errors.ErrCodecDisabled(c.Info().SDPName)
	}
	return ac, nil
}

// packetFrames returns the number of codes per packet. It is kept even,
// so only the last packet can end with a padding nibble.
func (s *Service) packetFrames() int {
	n := s.conf.Codec.FrameSize
	if n <= 0 {
		n = media.DefFrameSize
	}
	n &^= 1
	if n == 0 {
		n = 2
	}
	return n
}

// RoundTripAudioRTP encodes the samples into packed RTP packets, drops packets
// with loss simulation and decodes the rest in sequence order.
//
// Loss simulation counts packets here, not codes. Gaps are reported by the
// receiving stream and nothing is concealed, so the decoder state diverges
// after the first lost packet.
func (s *Service) RoundTripAudioRTP(ctx context.Context, a *wavfile.Audio) (*wavfile.Audio, stats.RoundTripReport, error) {
	codec, err := s.rtpCodec()
	if err != nil {
		return nil, stats.RoundTripReport{}, err
	}
	frameSize := s.packetFrames()

	var packets [][]byte
	wire := rtp.WriterFunc(func(p *rtp.Packet) error {
		data, err := p.Marshal()
		if err != nil {
			return err
		}
		packets = append(packets, data)
		return nil
	})
	stream := rtp.NewStream(wire, adpcm.RTPPayloadType, uint32(frameSize))
	packer := adpcm.NewPacker(rtp.NewMediaStreamOut[adpcm.PackedSample](stream, a.SampleRate))
	if err := writeFrames[media.PCM16Sample](ctx, adpcm.NewEncoder(packer), a.Samples, frameSize); err != nil {
		return nil, stats.RoundTripReport{}, err
	}
	if err := packer.Flush(); err != nil {
		return nil, stats.RoundTripReport{}, err
	}
	s.mon.SamplesEncoded(len(a.Samples))
	s.log.Debugw("encoded rtp stream", "ssrc", stream.SSRC(), "packets", len(packets), "frameSize", frameSize)

	out := media.NewSliceWriter[media.PCM16Sample](a.SampleRate)
	in := rtp.NewMediaStreamIn(codec.Decode(out))
	in.OnLoss = func(n int) {
		s.mon.PacketsLost(n)
	}
	padded := len(a.Samples)%2 == 1
	f := loss.NewFilter(s.conf.Codec.LossEvery)
	dropped, lastKept := 0, false
	for i, data := range packets {
		if err := ctx.Err(); err != nil {
			return nil, stats.RoundTripReport{}, err
		}
		var p rtp.Packet
		if err := p.Unmarshal(data); err != nil {
			return nil, stats.RoundTripReport{}, fmt.Errorf("cannot parse rtp packet %d: %w", i, err)
		}
		last := i == len(packets)-1
		if !f.Keep() {
			n := 2 * len(p.Payload)
			if last && padded {
				n--
			}
			dropped += n
			continue
		}
		lastKept = last
		if err := in.HandleRTP(&p); err != nil {
			return nil, stats.RoundTripReport{}, fmt.Errorf("cannot decode: %w", err)
		}
	}

	dec := out.Result()
	if padded && lastKept && len(dec) > 0 {
		dec = dec[:len(dec)-1]
	}
	if dec == nil {
		dec = media.PCM16Sample{}
	}
	s.mon.CodesDecoded(len(dec))
	if dropped > 0 {
		s.mon.CodesDropped(dropped)
		s.log.Infow("simulated packet loss",
			"packets", len(packets),
			"dropped", f.Dropped(),
			"lost", in.Lost(),
		)
	}
	return &wavfile.Audio{SampleRate: a.SampleRate, Samples: dec}, s.report(a.Samples, dec), nil
}
