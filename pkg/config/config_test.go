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

package config

import (
	"testing"

	"github.com/livekit/psrpc"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	conf, err := NewConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultSampleRate, conf.Codec.SampleRate)
	require.Equal(t, DefaultFrameSize, conf.Codec.FrameSize)
	require.Zero(t, conf.Codec.LossEvery)
	require.False(t, conf.Codec.Unpacked)
	require.Equal(t, "info", conf.Logging.Level)
	require.Equal(t, "adpcm", conf.ServiceName)
}

func TestLoggerFields(t *testing.T) {
	conf, err := NewConfig("codec: {loss_every: 7}")
	require.NoError(t, err)
	require.Equal(t, logrus.Fields{"logger": "adpcm", "lossEvery": 7}, conf.GetLoggerFields())
}

func TestParse(t *testing.T) {
	conf, err := NewConfig(`
codec:
  sample_rate: 8000
  frame_size: 160
  loss_every: 50000
  unpacked: true
logging:
  level: debug
codecs:
  IMA-ADPCM/8000: false
`)
	require.NoError(t, err)
	require.Equal(t, CodecConfig{
		SampleRate: 8000,
		FrameSize:  160,
		LossEvery:  DefaultLossEvery,
		Unpacked:   true,
	}, conf.Codec)
	require.Equal(t, "debug", conf.Logging.Level)
	require.Equal(t, map[string]bool{"IMA-ADPCM/8000": false}, conf.Codecs)
	require.NoError(t, conf.Init())
}

func TestInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"syntax":      "codec: [",
		"sample rate": "codec: {sample_rate: 0}",
		"frame size":  "codec: {frame_size: -1}",
		"loss":        "codec: {loss_every: -5}",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfig(body)
			require.Error(t, err)
			var perr psrpc.Error
			require.ErrorAs(t, err, &perr)
			require.Equal(t, psrpc.InvalidArgument, perr.Code())
		})
	}
}
