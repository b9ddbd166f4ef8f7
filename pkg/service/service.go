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

	"go.opentelemetry.io/otel/attribute"

	"github.com/livekit/protocol/logger"

	"github.com/livekit/adpcm/pkg/config"
	"github.com/livekit/adpcm/pkg/media"
	"github.com/livekit/adpcm/pkg/media/adpcm"
	"github.com/livekit/adpcm/pkg/media/loss"
	"github.com/livekit/adpcm/pkg/stats"
	"github.com/livekit/adpcm/pkg/wavfile"
	"github.com/livekit/adpcm/version"
)

// Service runs encode and decode jobs between audio files and ADPCM code files.
type Service struct {
	conf *config.Config
	mon  *stats.Monitor
	log  logger.Logger
}

func NewService(conf *config.Config, mon *stats.Monitor, log logger.Logger) *Service {
	if log == nil {
		log = logger.GetLogger()
	}
	log.Debugw("creating service", "version", version.Version)
	if conf.Codecs != nil {
		for name, enabled := range conf.Codecs {
			if enabled {
				log.Infow("codec enabled", "name", name)
			} else {
				log.Warnw("codec disabled", nil, "name", name)
			}
		}
		media.CodecsSetEnabled(conf.Codecs)
	}
	return &Service{
		conf: conf,
		mon:  mon,
		log:  log,
	}
}

// writeFrames is media.WriteFrames with cancellation between frames.
func writeFrames[T ~[]E, E any](ctx context.Context, w media.Writer[T], samples T, frameSize int) error {
	if frameSize <= 0 {
		frameSize = len(samples)
	}
	for len(samples) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		cur := samples
		if len(cur) > frameSize {
			cur = cur[:frameSize]
		}
		if err := w.WriteSample(cur); err != nil {
			return err
		}
		samples = samples[len(cur):]
	}
	return nil
}

// EncodeAudio encodes the samples from a zero state into a code file.
func (s *Service) EncodeAudio(ctx context.Context, a *wavfile.Audio) (*CodeFile, error) {
	f := &CodeFile{
		Count:      len(a.Samples),
		SampleRate: a.SampleRate,
		Unpacked:   s.conf.Codec.Unpacked,
	}
	if f.Unpacked {
		out := media.NewSliceWriter[adpcm.Sample](a.SampleRate)
		if err := writeFrames[media.PCM16Sample](ctx, adpcm.NewEncoder(out), a.Samples, s.conf.Codec.FrameSize); err != nil {
			return nil, err
		}
		f.Payload = out.Result()
	} else {
		out := media.NewSliceWriter[adpcm.PackedSample](a.SampleRate)
		p := adpcm.NewPacker(out)
		if err := writeFrames[media.PCM16Sample](ctx, adpcm.NewEncoder(p), a.Samples, s.conf.Codec.FrameSize); err != nil {
			return nil, err
		}
		if err := p.Flush(); err != nil {
			return nil, err
		}
		f.Payload = out.Result()
	}
	if f.Payload == nil {
		f.Payload = []byte{}
	}
	s.mon.SamplesEncoded(f.Count)
	return f, nil
}

// decodeTo decodes all codes into w, passing them through loss simulation first.
func (s *Service) decodeTo(ctx context.Context, codes adpcm.Sample, w media.PCM16Writer) (int, error) {
	var decoded int
	counter := media.WriterFunc(w.SampleRate(), func(sample media.PCM16Sample) error {
		decoded += len(sample)
		return w.WriteSample(sample)
	})
	lw := loss.NewWriter[adpcm.Sample](adpcm.NewDecoder(counter), s.conf.Codec.LossEvery)
	err := writeFrames[adpcm.Sample](ctx, lw, codes, s.conf.Codec.FrameSize)
	dropped := lw.Filter().Dropped()
	s.mon.CodesDecoded(decoded)
	s.mon.CodesDropped(int(dropped))
	if dropped != 0 {
		s.log.Debugw("codes dropped by loss simulation", "dropped", dropped, "every", s.conf.Codec.LossEvery)
	}
	if err != nil {
		return decoded, fmt.Errorf("cannot decode: %w", err)
	}
	return decoded, nil
}

func (s *Service) outputRate(f *CodeFile) int {
	if f.SampleRate > 0 {
		return f.SampleRate
	}
	return s.conf.Codec.SampleRate
}

// DecodeCodes decodes a code file from a zero state.
func (s *Service) DecodeCodes(ctx context.Context, f *CodeFile) (*wavfile.Audio, error) {
	out := media.NewSliceWriter[media.PCM16Sample](s.outputRate(f))
	if _, err := s.decodeTo(ctx, f.Codes(), out); err != nil {
		return nil, err
	}
	samples := out.Result()
	if samples == nil {
		samples = media.PCM16Sample{}
	}
	return &wavfile.Audio{SampleRate: out.SampleRate(), Samples: samples}, nil
}

// RoundTripAudio encodes the samples, applies loss simulation and decodes them again.
func (s *Service) RoundTripAudio(ctx context.Context, a *wavfile.Audio) (*wavfile.Audio, stats.RoundTripReport, error) {
	out := media.NewSliceWriter[media.PCM16Sample](a.SampleRate)

	var codes adpcm.Sample
	collect := media.WriterFunc(a.SampleRate, func(sample adpcm.Sample) error {
		codes = append(codes, sample...)
		return nil
	})
	if err := writeFrames[media.PCM16Sample](ctx, adpcm.NewEncoder(collect), a.Samples, s.conf.Codec.FrameSize); err != nil {
		return nil, stats.RoundTripReport{}, err
	}
	s.mon.SamplesEncoded(len(a.Samples))
	if _, err := s.decodeTo(ctx, codes, out); err != nil {
		return nil, stats.RoundTripReport{}, err
	}

	dec := out.Result()
	if dec == nil {
		dec = media.PCM16Sample{}
	}
	return &wavfile.Audio{SampleRate: a.SampleRate, Samples: dec}, s.report(a.Samples, dec), nil
}

func (s *Service) report(src, dec media.PCM16Sample) stats.RoundTripReport {
	rt := stats.NewRoundTrip()
	rt.Compare(src, dec)
	s.mon.ObserveError(src, dec)
	rep := rt.Report()
	s.log.Infow("round trip complete",
		"samples", len(src),
		"decoded", len(dec),
		"maxErr", rep.MaxErr,
		"rmsErr", rep.RMSErr,
		"snr", rep.SNR,
	)
	return rep
}

// Encode reads an audio file and writes a code file.
func (s *Service) Encode(ctx context.Context, in, out string) (err error) {
	ctx, span := startSpan(ctx, "service.Encode", attribute.String("input", in))
	defer func() { endSpan(span, err) }()
	a, err := wavfile.ReadFile(in)
	if err != nil {
		return err
	}
	f, err := s.EncodeAudio(ctx, a)
	if err != nil {
		return err
	}
	s.log.Infow("encoded", "input", in, "output", out, "samples", f.Count, "sampleRate", f.SampleRate, "unpacked", f.Unpacked)
	return writeCodeFile(out, f)
}

// Decode reads a code file and writes a WAV file.
func (s *Service) Decode(ctx context.Context, in, out string) (err error) {
	ctx, span := startSpan(ctx, "service.Decode",
		attribute.String("input", in),
		attribute.Int("lossEvery", s.conf.Codec.LossEvery),
	)
	defer func() { endSpan(span, err) }()
	f, err := readCodeFile(in)
	if err != nil {
		return err
	}
	w := wavfile.NewFileWriter(out, s.outputRate(f))
	n, err := s.decodeTo(ctx, f.Codes(), w)
	if err != nil {
		w.Discard()
		return err
	}
	s.log.Infow("decoded", "input", in, "output", out, "samples", n, "sampleRate", w.SampleRate())
	return w.Close()
}

// RoundTrip reads an audio file, runs it through RoundTripAudio and writes the result.
func (s *Service) RoundTrip(ctx context.Context, in, out string) (stats.RoundTripReport, error) {
	return s.roundTripFile(ctx, "service.RoundTrip", in, out, s.RoundTripAudio)
}

// RoundTripRTP is RoundTrip with the codes carried in RTP packets, see RoundTripAudioRTP.
func (s *Service) RoundTripRTP(ctx context.Context, in, out string) (stats.RoundTripReport, error) {
	return s.roundTripFile(ctx, "service.RoundTripRTP", in, out, s.RoundTripAudioRTP)
}

type roundTripFunc func(ctx context.Context, a *wavfile.Audio) (*wavfile.Audio, stats.RoundTripReport, error)

func (s *Service) roundTripFile(ctx context.Context, name, in, out string, fnc roundTripFunc) (rep stats.RoundTripReport, err error) {
	ctx, span := startSpan(ctx, name,
		attribute.String("input", in),
		attribute.Int("lossEvery", s.conf.Codec.LossEvery),
	)
	defer func() { endSpan(span, err) }()

	a, err := wavfile.ReadFile(in)
	if err != nil {
		return stats.RoundTripReport{}, err
	}
	dec, rep, err := fnc(ctx, a)
	if err != nil {
		return rep, err
	}
	span.SetAttributes(
		attribute.Int("samples", len(a.Samples)),
		attribute.Float64("snr", rep.SNR),
	)
	return rep, wavfile.WriteFile(out, dec)
}
