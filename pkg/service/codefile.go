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

package service

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/livekit/adpcm/pkg/errors"
	"github.com/livekit/adpcm/pkg/media/adpcm"
)

// Code file layout, all integers little-endian:
//
//	0: uint32 number of codes
//	4: uint32 sample rate, zero if unknown
//	8: uint8  flags
//	9: payload, two codes per byte (low nibble first) or one code per byte
const (
	codeHeaderSize = 9

	flagUnpacked = 1 << 0
)

type CodeFile struct {
	Count      int
	SampleRate int
	Unpacked   bool
	Payload    []byte
}

func (f *CodeFile) payloadLen() int {
	if f.Unpacked {
		return f.Count
	}
	return adpcm.PackedLen(f.Count)
}

// Codes returns one code per byte, without the padding nibble of packed files.
func (f *CodeFile) Codes() adpcm.Sample {
	if f.Unpacked {
		return adpcm.Sample(f.Payload[:f.Count])
	}
	return adpcm.Sample(adpcm.Unpack(nil, f.Payload)[:f.Count])
}

func (f *CodeFile) WriteTo(w io.Writer) (int64, error) {
	if f.Count < 0 || uint64(f.Count) > math.MaxUint32 {
		return 0, errors.ErrInvalidCodeFile("code count %d does not fit the header", f.Count)
	}
	if f.SampleRate < 0 || uint64(f.SampleRate) > math.MaxUint32 {
		return 0, errors.ErrInvalidCodeFile("sample rate %d does not fit the header", f.SampleRate)
	}
	if len(f.Payload) != f.payloadLen() {
		return 0, fmt.Errorf("payload size %d does not match %d codes", len(f.Payload), f.Count)
	}
	var hdr [codeHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(f.Count))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(f.SampleRate))
	if f.Unpacked {
		hdr[8] |= flagUnpacked
	}
	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(f.Payload)
	return int64(n + m), err
}

func ReadCodeFile(r io.Reader) (*CodeFile, error) {
	var hdr [codeHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrTruncatedCodes, err)
	}
	f := &CodeFile{
		Count:      int(binary.LittleEndian.Uint32(hdr[0:])),
		SampleRate: int(binary.LittleEndian.Uint32(hdr[4:])),
		Unpacked:   hdr[8]&flagUnpacked != 0,
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if exp := f.payloadLen(); len(payload) < exp {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", errors.ErrTruncatedCodes, exp, len(payload))
	} else {
		payload = payload[:exp]
	}
	f.Payload = payload
	return f, nil
}

func readCodeFile(path string) (*CodeFile, error) {
	fh, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.ErrFileNotFound(path)
	} else if err != nil {
		return nil, err
	}
	defer fh.Close()
	return ReadCodeFile(fh)
}

func writeCodeFile(path string, f *CodeFile) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err = f.WriteTo(fh); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
