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

package rtp_test

import (
	"testing"

	prtp "github.com/pion/rtp"
	"github.com/stretchr/testify/require"

	"github.com/livekit/adpcm/pkg/audiotest"
	"github.com/livekit/adpcm/pkg/media"
	"github.com/livekit/adpcm/pkg/media/adpcm"
	"github.com/livekit/adpcm/pkg/media/rtp"
)

// wire marshals every packet, the way it would be sent over a socket.
type wire struct {
	packets [][]byte
}

func (w *wire) WriteRTP(p *prtp.Packet) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	w.packets = append(w.packets, data)
	return nil
}

func (w *wire) replay(t testing.TB, h rtp.Handler, skip func(i int) bool) {
	for i, data := range w.packets {
		if skip != nil && skip(i) {
			continue
		}
		var p prtp.Packet
		require.NoError(t, p.Unmarshal(data))
		require.NoError(t, h.HandleRTP(&p))
	}
}

func encodeOverRTP(t testing.TB, src media.PCM16Sample) (*wire, rtp.AudioCodec) {
	c, ok := rtp.CodecByPayloadType(adpcm.RTPPayloadType).(rtp.AudioCodec)
	require.True(t, ok)

	w := &wire{}
	s := rtp.NewStream(w, adpcm.RTPPayloadType, uint32(media.DefFrameSize))
	enc := c.EncodeRTP(s)
	require.Equal(t, media.DefSampleRate, enc.SampleRate())
	require.NoError(t, media.WriteFrames(enc, src, media.DefFrameSize))
	return w, c
}

func TestStream(t *testing.T) {
	src := make(media.PCM16Sample, 10*media.DefFrameSize)
	audiotest.GenSignal(src, []audiotest.Wave{{Ind: 4, Amp: 6000}, {Ind: 6, Amp: 3000}})

	w, _ := encodeOverRTP(t, src)
	require.Len(t, w.packets, 10)

	var ssrc uint32
	for i, data := range w.packets {
		var p prtp.Packet
		require.NoError(t, p.Unmarshal(data))
		require.EqualValues(t, 2, p.Version)
		require.EqualValues(t, adpcm.RTPPayloadType, p.PayloadType)
		require.EqualValues(t, i, p.SequenceNumber)
		require.EqualValues(t, i*media.DefFrameSize, p.Timestamp)
		require.Len(t, p.Payload, media.DefFrameSize/2)
		if i == 0 {
			ssrc = p.SSRC
		}
		require.Equal(t, ssrc, p.SSRC)
	}
}

func TestRoundTrip(t *testing.T) {
	src := make(media.PCM16Sample, 10*media.DefFrameSize)
	audiotest.GenSignal(src, []audiotest.Wave{{Ind: 4, Amp: 6000}, {Ind: 6, Amp: 3000}})

	w, c := encodeOverRTP(t, src)

	out := media.NewSliceWriter[media.PCM16Sample](media.DefSampleRate)
	h := c.DecodeRTP(out, adpcm.RTPPayloadType)
	w.replay(t, h, nil)

	want, err := adpcm.Decode(adpcm.Encode(src))
	require.NoError(t, err)
	require.Equal(t, media.PCM16Sample(want), out.Result())

	in, ok := h.(*rtp.MediaStreamIn[adpcm.PackedSample])
	require.True(t, ok)
	require.Zero(t, in.Lost())
	require.Zero(t, in.Late())
}

func TestPacketLoss(t *testing.T) {
	src := make(media.PCM16Sample, 10*media.DefFrameSize)
	audiotest.GenSignal(src, []audiotest.Wave{{Ind: 4, Amp: 6000}, {Ind: 6, Amp: 3000}})

	w, c := encodeOverRTP(t, src)

	out := media.NewSliceWriter[media.PCM16Sample](media.DefSampleRate)
	h := c.DecodeRTP(out, adpcm.RTPPayloadType)
	in := h.(*rtp.MediaStreamIn[adpcm.PackedSample])
	var gaps []int
	in.OnLoss = func(n int) {
		gaps = append(gaps, n)
	}
	w.replay(t, h, func(i int) bool {
		return i == 3 || i == 4 || i == 7
	})
	require.EqualValues(t, 3, in.Lost())
	require.Equal(t, []int{2, 1}, gaps)
	require.Len(t, out.Result(), 7*media.DefFrameSize)

	want, err := adpcm.Decode(adpcm.Encode(src))
	require.NoError(t, err)
	// everything before the first gap is intact, the rest is not recovered
	n := 3 * media.DefFrameSize
	require.Equal(t, media.PCM16Sample(want[:n]), out.Result()[:n])
	f := media.DefFrameSize
	require.NotEqual(t, media.PCM16Sample(want[5*f:6*f]), out.Result()[n:n+f])
}

func TestLateAndWrap(t *testing.T) {
	out := media.NewSliceWriter[[]byte](8000)
	in := rtp.NewMediaStreamIn[[]byte](out)

	send := func(seq uint16) {
		require.NoError(t, in.HandleRTP(&prtp.Packet{
			Header:  prtp.Header{Version: 2, SequenceNumber: seq},
			Payload: []byte{byte(seq)},
		}))
	}
	send(65534)
	send(65535)
	send(0)
	send(65535) // duplicate
	send(2)
	send(1) // late
	require.EqualValues(t, 1, in.Lost())
	require.EqualValues(t, 2, in.Late())
	require.Equal(t, []byte{0xfe, 0xff, 0x00, 0x02}, out.Result())
}
