// Copyright 2023 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/livekit/protocol/logger"

	"github.com/livekit/adpcm/pkg/errors"
)

const (
	DefaultSampleRate = 44100
	DefaultFrameSize  = 1024
	// DefaultLossEvery is the usual interval for loss simulation runs. Loss is off unless loss_every is set.
	DefaultLossEvery = 50000
)

type Config struct {
	Codec   CodecConfig   `yaml:"codec"`
	Logging logger.Config `yaml:"logging"`
	// Codecs enables or disables registered codecs by SDP name.
	Codecs map[string]bool `yaml:"codecs"`

	// internal
	ServiceName string `yaml:"-"`
}

type CodecConfig struct {
	// SampleRate is used for decoded WAV output when the source rate is unknown.
	SampleRate int `yaml:"sample_rate"`
	// FrameSize is the number of samples passed through the codec at once.
	FrameSize int `yaml:"frame_size"`
	// LossEvery drops every Nth code before decoding. Zero disables loss simulation.
	LossEvery int `yaml:"loss_every"`
	// Unpacked stores one code per byte instead of two.
	Unpacked bool `yaml:"unpacked"`
}

func NewConfig(confString string) (*Config, error) {
	conf := &Config{
		Codec: CodecConfig{
			SampleRate: DefaultSampleRate,
			FrameSize:  DefaultFrameSize,
		},
		Logging: logger.Config{
			Level: "info",
		},
		ServiceName: "adpcm",
	}
	if confString != "" {
		if err := yaml.Unmarshal([]byte(confString), conf); err != nil {
			return nil, errors.ErrCouldNotParseConfig(err)
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (conf *Config) Validate() error {
	if conf.Codec.SampleRate <= 0 {
		return errors.ErrInvalidConfig("sample_rate must be positive, got %d", conf.Codec.SampleRate)
	}
	if conf.Codec.FrameSize <= 0 {
		return errors.ErrInvalidConfig("frame_size must be positive, got %d", conf.Codec.FrameSize)
	}
	if conf.Codec.LossEvery < 0 {
		return errors.ErrInvalidConfig("loss_every must not be negative, got %d", conf.Codec.LossEvery)
	}
	return nil
}

func (conf *Config) Init() error {
	return conf.InitLogger()
}

func (c *Config) InitLogger(values ...interface{}) error {
	zl, err := logger.NewZapLogger(&c.Logging)
	if err != nil {
		return err
	}

	values = append(c.GetLoggerValues(), values...)
	l := zl.WithValues(values...)
	logger.SetLogger(l, c.ServiceName)

	return nil
}

// To use with zap logger
func (c *Config) GetLoggerValues() []interface{} {
	return []interface{}{"lossEvery", c.Codec.LossEvery}
}

// To use with logrus
func (c *Config) GetLoggerFields() logrus.Fields {
	fields := logrus.Fields{
		"logger": c.ServiceName,
	}
	v := c.GetLoggerValues()
	for i := 0; i < len(v); i += 2 {
		fields[v[i].(string)] = v[i+1]
	}
	return fields
}
