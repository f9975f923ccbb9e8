// Copyright 2024 EMQ Technologies Co., Ltd.
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

package state

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/lf-edge/kql/pkg/ast"
)

// Unbounded is the end of the single window of an aggregation without WINDOW.
const Unbounded int64 = math.MaxInt64

// WindowedKey identifies one aggregation group in one window. Key is the
// encoded group key, Start is inclusive and End exclusive in milliseconds.
type WindowedKey struct {
	Key   string
	Start int64
	End   int64
}

func (k WindowedKey) String() string {
	if k.End == Unbounded {
		return fmt.Sprintf("%q@[%d,)", k.Key, k.Start)
	}
	return fmt.Sprintf("%q@[%d,%d)", k.Key, k.Start, k.End)
}

// EncodeWindowedKey appends the big endian window start to the group key.
func EncodeWindowedKey(key []byte, start int64) []byte {
	b := make([]byte, len(key)+8)
	copy(b, key)
	binary.BigEndian.PutUint64(b[len(key):], uint64(start))
	return b
}

func DecodeWindowedKey(b []byte) ([]byte, int64, error) {
	if len(b) < 8 {
		return nil, 0, fmt.Errorf("windowed key must have at least 8 bytes but got %d", len(b))
	}
	n := len(b) - 8
	return b[:n], int64(binary.BigEndian.Uint64(b[n:])), nil
}

type Window struct {
	Start int64
	End   int64
}

// Assigner maps an event time to the windows containing it in ascending start order.
type Assigner interface {
	Assign(ts int64) []Window
}

// NewAssigner builds the assigner of a window clause. A nil clause yields
// the single unbounded window.
func NewAssigner(w *ast.Window) (Assigner, error) {
	if w == nil {
		return unboundedAssigner{}, nil
	}
	size := w.Length.Milliseconds()
	if size <= 0 {
		return nil, fmt.Errorf("window size must be at least 1 millisecond but got %s", w.Length)
	}
	switch w.WindowType {
	case ast.TUMBLING_WINDOW:
		return &hoppingAssigner{size: size, advance: size}, nil
	case ast.HOPPING_WINDOW:
		advance := w.Interval.Milliseconds()
		if advance <= 0 || advance > size {
			return nil, fmt.Errorf("window advance must be between 1 millisecond and the size %s but got %s", w.Length, w.Interval)
		}
		return &hoppingAssigner{size: size, advance: advance}, nil
	default:
		return nil, fmt.Errorf("unsupported window type %s", ast.WindowTypeNames[w.WindowType])
	}
}

type unboundedAssigner struct{}

func (unboundedAssigner) Assign(_ int64) []Window {
	return []Window{{Start: 0, End: Unbounded}}
}

// hoppingAssigner is also the tumbling assigner when advance equals size.
type hoppingAssigner struct {
	size    int64
	advance int64
}

func (h *hoppingAssigner) Assign(ts int64) []Window {
	last := floorDiv(ts, h.advance) * h.advance
	var r []Window
	for start := last; start > ts-h.size; start -= h.advance {
		r = append(r, Window{Start: start, End: start + h.size})
	}
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return r
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Expired tells if the window is closed at the watermark.
func (w Window) Expired(watermark int64, grace time.Duration) bool {
	if w.End == Unbounded {
		return false
	}
	return watermark >= w.End+grace.Milliseconds()
}
