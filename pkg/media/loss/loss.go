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

// Package loss simulates data loss on a sample stream before it reaches a decoder.
package loss

import (
	"fmt"

	"github.com/livekit/adpcm/pkg/media"
)

// NewFilter creates a filter that drops every element at a stream position divisible by every,
// including the very first one. Zero or negative every disables dropping.
func NewFilter(every int) *Filter {
	return &Filter{every: every}
}

type Filter struct {
	every   int
	pos     uint64
	dropped uint64
}

// Keep advances the stream position and reports if the element at it passes.
func (f *Filter) Keep() bool {
	pos := f.pos
	f.pos++
	if f.every <= 0 || pos%uint64(f.every) != 0 {
		return true
	}
	f.dropped++
	return false
}

// Position returns the number of elements seen so far.
func (f *Filter) Position() uint64 {
	return f.pos
}

// Dropped returns the number of elements removed so far.
func (f *Filter) Dropped() uint64 {
	return f.dropped
}

// Apply appends elements of src that pass the filter to dst.
func Apply[T any](f *Filter, dst, src []T) []T {
	for _, v := range src {
		if f.Keep() {
			dst = append(dst, v)
		}
	}
	return dst
}

// DropEvery returns a copy of src without elements at positions divisible by every.
func DropEvery[T any](src []T, every int) []T {
	return Apply(NewFilter(every), make([]T, 0, len(src)), src)
}

// NewWriter returns a writer that applies the filter to every frame before passing it to w.
// Frames that become empty are not forwarded.
func NewWriter[T ~[]E, E any](w media.Writer[T], every int) *Writer[T, E] {
	return &Writer[T, E]{w: w, f: NewFilter(every)}
}

type Writer[T ~[]E, E any] struct {
	w   media.Writer[T]
	f   *Filter
	buf T
}

func (w *Writer[T, E]) String() string {
	return fmt.Sprintf("Loss(%d) -> %s", w.f.every, w.w)
}

func (w *Writer[T, E]) SampleRate() int {
	return w.w.SampleRate()
}

func (w *Writer[T, E]) Filter() *Filter {
	return w.f
}

func (w *Writer[T, E]) WriteSample(in T) error {
	w.buf = Apply[E](w.f, w.buf[:0], in)
	if len(w.buf) == 0 {
		return nil
	}
	return w.w.WriteSample(w.buf)
}
