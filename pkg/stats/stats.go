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

package stats

import (
	"math"
	"sync/atomic"
)

type statAtomic struct {
	overflow   uint64
	count      uint64
	sum        uint64
	squaresSum uint64
	min        uint64
	max        uint64
}

type StatSnapshot struct {
	Overflow   uint64
	Count      uint64
	Sum        uint64
	SquaresSum uint64
	Min        uint64
	Average    float64
	Max        uint64
	Variance   float64
}

func NewStatAtomic() *statAtomic {
	return &statAtomic{
		overflow:   0,
		count:      0,
		sum:        0,
		squaresSum: 0,
		min:        math.MaxUint64,
		max:        0,
	}
}
func (s *statAtomic) Update(value uint64) {
	atomic.AddUint64(&s.count, 1) // new count
	atomic.AddUint64(&s.sum, value)
	for { // Update max
		max := atomic.LoadUint64(&s.max)
		if value <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&s.max, max, value) {
			break
		}
	}
	for { // Update min
		min := atomic.LoadUint64(&s.min)
		if value >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&s.min, min, value) {
			break
		}
	}
	square := value * value
	newsquaresSum := atomic.AddUint64(&s.squaresSum, square)
	if newsquaresSum < square {
		// squaresSum will be the first to go by definition. Everything else may follow.
		atomic.StoreUint64(&s.overflow, 1)
	}
}

// Can be inaccurate if updated concurrently with function call.
// Caller should lock to ensure accuracy.
func (s *statAtomic) Snapshot() *StatSnapshot {
	snapshot := StatSnapshot{
		Overflow:   atomic.LoadUint64(&s.overflow),
		Count:      atomic.LoadUint64(&s.count),
		Sum:        atomic.LoadUint64(&s.sum),
		SquaresSum: atomic.LoadUint64(&s.squaresSum),
		Min:        atomic.LoadUint64(&s.min),
		Max:        atomic.LoadUint64(&s.max),
	}
	if snapshot.Count == 0 {
		snapshot.Min = 0
		snapshot.Average = 0
		snapshot.Variance = 0
	} else {
		snapshot.Average = float64(snapshot.Sum) / float64(snapshot.Count)
		snapshot.Variance = (float64(snapshot.SquaresSum) / float64(snapshot.Count)) - (snapshot.Average * snapshot.Average)
	}
	return &snapshot
}

// RoundTrip accumulates the reconstruction error of a lossy codec.
type RoundTrip struct {
	signal *statAtomic
	err    *statAtomic
}

type RoundTripReport struct {
	Samples uint64
	MaxErr  uint64
	MeanErr float64
	RMSErr  float64
	// SNR in dB. It is +Inf for a lossless match and NaN if the sums overflowed.
	SNR float64
}

func NewRoundTrip() *RoundTrip {
	return &RoundTrip{
		signal: NewStatAtomic(),
		err:    NewStatAtomic(),
	}
}

// Compare updates the statistics with the common prefix of src and dec.
func (r *RoundTrip) Compare(src, dec []int16) {
	n := min(len(src), len(dec))
	for i := 0; i < n; i++ {
		r.signal.Update(abs(int(src[i])))
		r.err.Update(abs(int(src[i]) - int(dec[i])))
	}
}

func (r *RoundTrip) Report() RoundTripReport {
	sig := r.signal.Snapshot()
	e := r.err.Snapshot()
	rep := RoundTripReport{
		Samples: e.Count,
		MaxErr:  e.Max,
		MeanErr: e.Average,
	}
	if e.Count != 0 {
		rep.RMSErr = math.Sqrt(float64(e.SquaresSum) / float64(e.Count))
	}
	switch {
	case sig.Overflow != 0 || e.Overflow != 0:
		rep.SNR = math.NaN()
	case e.SquaresSum == 0:
		rep.SNR = math.Inf(1)
	default:
		rep.SNR = 10 * math.Log10(float64(sig.SquaresSum)/float64(e.SquaresSum))
	}
	return rep
}

func abs(v int) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}
