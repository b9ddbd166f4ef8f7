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
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// DefSampleRate is a default number of audio samples per second.
	DefSampleRate = 8000
	// DefFrameDur is a default duration of an audio frame.
	DefFrameDur = 20 * time.Millisecond
	// DefFramesPerSec is a default number of audio frames per second.
	DefFramesPerSec = int(time.Second / DefFrameDur)
	// DefFrameSize is a default number of samples in a single frame at DefSampleRate.
	DefFrameSize = DefSampleRate / DefFramesPerSec
)

type Frame interface {
	// Size of the frame in bytes.
	Size() int
	// CopyTo copies the frame content to the destination bytes slice.
	// It returns io.ErrShortBuffer is the buffer size is less than frame's Size.
	CopyTo(dst []byte) (int, error)
}

type Writer[T any] interface {
	String() string
	SampleRate() int
	WriteSample(sample T) error
}

type WriteCloser[T any] interface {
	Writer[T]
	Close() error
}

type writeCloser[T any] struct {
	Writer[T]
}

func (*writeCloser[T]) Close() error {
	return nil
}

func NopCloser[T any](w Writer[T]) WriteCloser[T] {
	return &writeCloser[T]{w}
}

// WriterFunc wraps a function into a Writer with a given sample rate.
func WriterFunc[T any](sampleRate int, fnc func(sample T) error) Writer[T] {
	return &funcWriter[T]{sampleRate: sampleRate, fnc: fnc}
}

type funcWriter[T any] struct {
	sampleRate int
	fnc        func(sample T) error
}

func (w *funcWriter[T]) String() string {
	return fmt.Sprintf("Func(%d)", w.sampleRate)
}

func (w *funcWriter[T]) SampleRate() int {
	return w.sampleRate
}

func (w *funcWriter[T]) WriteSample(sample T) error {
	return w.fnc(sample)
}

// NewSliceWriter returns a writer that accumulates all written samples in memory.
func NewSliceWriter[T ~[]E, E any](sampleRate int) *SliceWriter[T, E] {
	return &SliceWriter[T, E]{sampleRate: sampleRate}
}

type SliceWriter[T ~[]E, E any] struct {
	sampleRate int
	frames     int
	buf        T
}

func (w *SliceWriter[T, E]) String() string {
	return fmt.Sprintf("Slice(%d)", w.sampleRate)
}

func (w *SliceWriter[T, E]) SampleRate() int {
	return w.sampleRate
}

func (w *SliceWriter[T, E]) WriteSample(sample T) error {
	w.frames++
	w.buf = append(w.buf, sample...)
	return nil
}

// Frames returns the number of WriteSample calls observed so far.
func (w *SliceWriter[T, E]) Frames() int {
	return w.frames
}

// Result returns all samples written so far. The slice is owned by the writer.
func (w *SliceWriter[T, E]) Result() T {
	return w.buf
}

type MultiWriter[T any] []Writer[T]

func (s MultiWriter[T]) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "MultiWriter(%d,%d)", len(s), s.SampleRate())
	for i, w := range s {
		fmt.Fprintf(&buf, "; $%d-> %s", i+1, w.String())
	}
	return buf.String()
}

func (s MultiWriter[T]) SampleRate() int {
	if len(s) == 0 {
		return 0
	}
	return s[0].SampleRate()
}

func (s MultiWriter[T]) WriteSample(sample T) error {
	var last error
	for _, w := range s {
		if err := w.WriteSample(sample); err != nil {
			last = err
		}
	}
	return last
}

// WriteFrames splits samples into frames of a given size and writes them in order.
func WriteFrames[T ~[]E, E any](w Writer[T], samples T, frameSize int) error {
	if frameSize <= 0 {
		frameSize = len(samples)
	}
	for len(samples) > 0 {
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

func NewFileWriter[T Frame](w io.WriteCloser, sampleRate int) WriteCloser[T] {
	return &fileWriter[T]{
		w:          w,
		bw:         bufio.NewWriter(w),
		sampleRate: sampleRate,
	}
}

type fileWriter[T Frame] struct {
	w          io.WriteCloser
	bw         *bufio.Writer
	sampleRate int
	buf        []byte
}

func (w *fileWriter[T]) String() string {
	return fmt.Sprintf("RawFile(%d)", w.sampleRate)
}

func (w *fileWriter[T]) SampleRate() int {
	return w.sampleRate
}

func (w *fileWriter[T]) WriteSample(sample T) error {
	if sz := sample.Size(); cap(w.buf) < sz {
		w.buf = make([]byte, sz)
	} else {
		w.buf = w.buf[:sz]
	}
	n, err := sample.CopyTo(w.buf)
	if err != nil {
		return err
	}
	_, err = w.bw.Write(w.buf[:n])
	return err
}

func (w *fileWriter[T]) Close() error {
	if err := w.bw.Flush(); err != nil {
		_ = w.w.Close()
		return err
	}
	if err := w.w.Close(); err != nil {
		return err
	}
	return nil
}
