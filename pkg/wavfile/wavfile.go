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

// Package wavfile reads and writes mono 16-bit audio files.
package wavfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jfreymuth/oggvorbis"
	"github.com/pkg/errors"
	"github.com/youpy/go-wav"

	adpcmerrors "github.com/livekit/adpcm/pkg/errors"
	"github.com/livekit/adpcm/pkg/media"
)

const bitsPerSample = 16

type Audio struct {
	SampleRate int
	Samples    media.PCM16Sample
}

type ReadAtReader interface {
	io.Reader
	io.ReaderAt
}

func ReadWAV(r ReadAtReader) (*Audio, error) {
	wr := wav.NewReader(r)
	format, err := wr.Format()
	if err != nil {
		return nil, errors.Wrap(err, "cannot read wav header")
	}
	if format.AudioFormat != wav.AudioFormatPCM || format.NumChannels != 1 || format.BitsPerSample != bitsPerSample {
		return nil, errors.Wrapf(adpcmerrors.ErrUnsupportedFormat, "format %d, %d channels, %d bits",
			format.AudioFormat, format.NumChannels, format.BitsPerSample)
	}
	a := &Audio{SampleRate: int(format.SampleRate)}
	for {
		samples, err := wr.ReadSamples()
		for _, s := range samples {
			a.Samples = append(a.Samples, int16(s.Values[0]))
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "cannot read wav samples")
		}
	}
	return a, nil
}

func ReadOgg(r io.Reader) (*Audio, error) {
	or, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(adpcmerrors.ErrUnsupportedFormat, err.Error())
	}
	if or.Channels() != 1 {
		return nil, errors.Wrapf(adpcmerrors.ErrUnsupportedFormat, "%d channels", or.Channels())
	}
	a := &Audio{SampleRate: or.SampleRate()}
	buf := make([]float32, 4096)
	for {
		n, err := or.Read(buf)
		for _, v := range buf[:n] {
			a.Samples = append(a.Samples, floatToPCM16(v))
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "cannot read ogg samples")
		}
	}
	return a, nil
}

func floatToPCM16(v float32) int16 {
	v *= 0x7fff
	switch {
	case v > 0x7fff:
		return 0x7fff
	case v < -0x8000:
		return -0x8000
	}
	return int16(v)
}

// ReadFile reads a WAV file, or an Ogg Vorbis file if the name ends with ".ogg".
func ReadFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, adpcmerrors.ErrFileNotFound(path)
	} else if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".ogg") {
		return ReadOgg(f)
	}
	return ReadWAV(f)
}

func Write(w io.Writer, a *Audio) error {
	ww := wav.NewWriter(w, uint32(len(a.Samples)), 1, uint32(a.SampleRate), bitsPerSample)
	samples := make([]wav.Sample, len(a.Samples))
	for i, v := range a.Samples {
		samples[i].Values[0] = int(v)
	}
	return ww.WriteSamples(samples)
}

func WriteFile(path string, a *Audio) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = Write(f, a); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// NewFileWriter collects PCM frames and writes them as a WAV file on Close.
// Nothing is written to path before Close.
func NewFileWriter(path string, sampleRate int) *FileWriter {
	return &FileWriter{path: path, audio: Audio{SampleRate: sampleRate}}
}

var _ media.WriteCloser[media.PCM16Sample] = (*FileWriter)(nil)

type FileWriter struct {
	path      string
	audio     Audio
	discarded bool
}

func (w *FileWriter) String() string {
	return fmt.Sprintf("WAV(%d) -> %s", w.audio.SampleRate, w.path)
}

func (w *FileWriter) SampleRate() int {
	return w.audio.SampleRate
}

func (w *FileWriter) WriteSample(sample media.PCM16Sample) error {
	if w.discarded {
		return io.ErrClosedPipe
	}
	w.audio.Samples = append(w.audio.Samples, sample...)
	return nil
}

// Discard drops collected samples. The file is not created and Close becomes a no-op.
func (w *FileWriter) Discard() {
	w.discarded = true
	w.audio.Samples = nil
}

func (w *FileWriter) Close() error {
	if w.discarded {
		return nil
	}
	return WriteFile(w.path, &w.audio)
}
