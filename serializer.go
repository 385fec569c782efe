// Copyright New Relic Corporation
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

package nrsketch // import "github.com/newrelic-experimental/newrelic-sketch-go"

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/newrelic-experimental/newrelic-sketch-go/indexer"
)

// The wire format is big-endian and self-describing: a leading u16
// version selects the variant. Version ranges are reserved per
// variant; anything unknown is a hard decode error.
const (
	simpleSketchFormatV1     uint16 = 0x0200
	comboSketchFormatV1      uint16 = 0x0300
	concurrentSketchFormatV1 uint16 = 0x0400

	windowFormatV1 byte = 1
)

// Marshal encodes a sketch into its stable wire form. The buffer is
// sized exactly before any byte is written.
func Marshal(s Sketch) ([]byte, error) {
	switch v := s.(type) {
	case *SimpleSketch:
		return appendSimple(make([]byte, 0, simpleEncodedSize(v)), v), nil
	case *ComboSketch:
		return appendCombo(make([]byte, 0, comboEncodedSize(v)), v), nil
	case *ConcurrentSketch:
		v.mu.Lock()
		defer v.mu.Unlock()
		inner, err := Marshal(v.inner)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 0, 2+len(inner))
		buf = binary.BigEndian.AppendUint16(buf, concurrentSketchFormatV1)
		return append(buf, inner...), nil
	default:
		return nil, fmt.Errorf("%w: cannot marshal %T", ErrIncompatibleOperation, s)
	}
}

func simpleEncodedSize(s *SimpleSketch) int {
	// version, count, sum, min, max, polarity, scale, policy,
	// wrong-sign count, zero count.
	return 2 + 8 + 8 + 8 + 8 + 1 + 1 + 1 + 8 + 8 + windowEncodedSize(s.buckets)
}

func appendSimple(buf []byte, s *SimpleSketch) []byte {
	buf = binary.BigEndian.AppendUint16(buf, simpleSketchFormatV1)
	buf = binary.BigEndian.AppendUint64(buf, s.totalCount)
	buf = appendFloat64(buf, s.sum)
	buf = appendFloat64(buf, s.min)
	buf = appendFloat64(buf, s.max)
	polarity := byte(0)
	if s.indexIsPositive {
		polarity = 1
	}
	buf = append(buf, polarity, byte(int8(s.scale)), byte(s.policy))
	buf = binary.BigEndian.AppendUint64(buf, s.countForWrongSign)
	buf = binary.BigEndian.AppendUint64(buf, s.countForZero)
	return appendWindow(buf, s.buckets)
}

func windowEncodedSize(w *WindowedCounterArray) int {
	// format, max size, index start, index end, bytes per counter.
	n := 1 + 4 + 8 + 8 + 1
	if !w.IsEmpty() {
		for i := w.IndexStart(); i <= w.IndexEnd(); i++ {
			n += uvarintLen(w.Get(i))
		}
	}
	return n
}

func appendWindow(buf []byte, w *WindowedCounterArray) []byte {
	buf = append(buf, windowFormatV1)
	buf = binary.BigEndian.AppendUint32(buf, uint32(w.MaxSize()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(w.IndexStart()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(w.IndexEnd()))
	buf = append(buf, byte(w.BytesPerCounter()))
	if !w.IsEmpty() {
		for i := w.IndexStart(); i <= w.IndexEnd(); i++ {
			buf = binary.AppendUvarint(buf, w.Get(i))
		}
	}
	return buf
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

func comboEncodedSize(c *ComboSketch) int {
	// version, per-side max buckets, initial scale, policy, child count.
	n := 2 + 4 + 1 + 1 + 1
	if len(c.sketches) > 1 {
		n += 8 + 8 + 8 + 8
	}
	for _, h := range c.sketches {
		n += simpleEncodedSize(h)
	}
	return n
}

func appendCombo(buf []byte, c *ComboSketch) []byte {
	buf = binary.BigEndian.AppendUint16(buf, comboSketchFormatV1)
	buf = binary.BigEndian.AppendUint32(buf, uint32(c.cfg.maxBuckets))
	buf = append(buf, byte(int8(c.cfg.initialScale)), byte(c.cfg.policy), byte(len(c.sketches)))
	if len(c.sketches) > 1 {
		// Summary block: lets a reader peek at the aggregate without
		// decoding the children.
		buf = binary.BigEndian.AppendUint64(buf, c.Count())
		buf = appendFloat64(buf, c.Sum())
		buf = appendFloat64(buf, c.Min())
		buf = appendFloat64(buf, c.Max())
	}
	for _, h := range c.sketches {
		buf = appendSimple(buf, h)
	}
	return buf
}

func appendFloat64(buf []byte, v float64) []byte {
	return binary.BigEndian.AppendUint64(buf, math.Float64bits(v))
}

// Unmarshal decodes a sketch produced by Marshal. The decoded sketch
// equals the original under the sketch equality relation; the physical
// window base is reset to the window start.
func Unmarshal(data []byte) (Sketch, error) {
	r := &reader{buf: data}
	s, err := decodeSketch(r)
	if err != nil {
		return nil, err
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDecode, len(r.buf))
	}
	return s, nil
}

func decodeSketch(r *reader) (Sketch, error) {
	switch version := r.uint16(); version {
	case simpleSketchFormatV1:
		return decodeSimple(r)
	case comboSketchFormatV1:
		return decodeCombo(r)
	case concurrentSketchFormatV1:
		inner, err := decodeSketch(r)
		if err != nil {
			return nil, err
		}
		return NewConcurrentSketch(inner), nil
	default:
		if r.err != nil {
			return nil, r.err
		}
		return nil, fmt.Errorf("%w: unsupported format version 0x%04x", ErrDecode, version)
	}
}

func decodeSimple(r *reader) (*SimpleSketch, error) {
	count := r.uint64()
	sum := r.float64()
	minValue := r.float64()
	maxValue := r.float64()
	polarity := r.byte()
	scale := int32(int8(r.byte()))
	policy := indexer.Policy(r.byte())
	wrongSign := r.uint64()
	zero := r.uint64()
	if r.err != nil {
		return nil, r.err
	}
	if polarity > 1 {
		return nil, fmt.Errorf("%w: polarity %d", ErrDecode, polarity)
	}
	if scale < indexer.MinScale || scale > indexer.MaxScale {
		return nil, fmt.Errorf("%w: scale %d", ErrDecode, scale)
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("%w: indexer policy %d", ErrDecode, uint8(policy))
	}
	window, err := decodeWindow(r)
	if err != nil {
		return nil, err
	}
	ix, err := policy.NewIndexer(scale)
	if err != nil {
		return nil, fmt.Errorf("%w: scale %d under policy %v", ErrDecode, scale, policy)
	}
	return &SimpleSketch{
		maxBuckets:        window.MaxSize(),
		indexIsPositive:   polarity == 1,
		policy:            policy,
		scale:             scale,
		indexer:           ix,
		buckets:           window,
		totalCount:        count,
		countForZero:      zero,
		countForWrongSign: wrongSign,
		min:               minValue,
		max:               maxValue,
		sum:               sum,
	}, nil
}

func decodeWindow(r *reader) (*WindowedCounterArray, error) {
	if format := r.byte(); r.err == nil && format != windowFormatV1 {
		return nil, fmt.Errorf("%w: counter array format %d", ErrDecode, format)
	}
	maxSize := r.uint32()
	indexStart := int64(r.uint64())
	indexEnd := int64(r.uint64())
	bytesPerCounter := int(r.byte())
	if r.err != nil {
		return nil, r.err
	}
	if maxSize == 0 {
		return nil, fmt.Errorf("%w: zero max size", ErrDecode)
	}
	switch bytesPerCounter {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("%w: %d bytes per counter", ErrDecode, bytesPerCounter)
	}
	w := NewWindowedCounterArray(int(maxSize))
	w.counters.widenTo(bytesPerCounter)
	if indexStart == NullIndex && indexEnd == NullIndex {
		return w, nil
	}
	if indexStart > indexEnd || indexEnd-indexStart+1 > int64(maxSize) {
		return nil, fmt.Errorf("%w: window [%d, %d] under max size %d",
			ErrDecode, indexStart, indexEnd, maxSize)
	}
	// The first increment anchors indexBase at indexStart; zero counts
	// still extend the window to its encoded bounds.
	for i := indexStart; i <= indexEnd; i++ {
		c := r.uvarint()
		if r.err != nil {
			return nil, r.err
		}
		w.Increment(i, c)
	}
	return w, nil
}

func decodeCombo(r *reader) (*ComboSketch, error) {
	maxBuckets := r.uint32()
	scale := int32(int8(r.byte()))
	policy := indexer.Policy(r.byte())
	children := int(r.byte())
	if r.err != nil {
		return nil, r.err
	}
	if children > 2 {
		return nil, fmt.Errorf("%w: %d combo children", ErrDecode, children)
	}
	if children > 1 {
		// Summary block; the aggregates are recomputed from children.
		r.uint64()
		r.float64()
		r.float64()
		r.float64()
	}
	cfg := config{maxBuckets: int(maxBuckets), initialScale: scale, policy: policy}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	c := &ComboSketch{cfg: cfg}
	for i := 0; i < children; i++ {
		if version := r.uint16(); r.err == nil && version != simpleSketchFormatV1 {
			return nil, fmt.Errorf("%w: combo child format 0x%04x", ErrDecode, version)
		}
		h, err := decodeSimple(r)
		if err != nil {
			return nil, err
		}
		c.sketches = append(c.sketches, h)
	}
	if children == 2 && (c.sketches[0].indexIsPositive || !c.sketches[1].indexIsPositive) {
		return nil, fmt.Errorf("%w: combo children out of polarity order", ErrDecode)
	}
	return c, nil
}

// reader consumes the buffer front with a sticky error.
type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = fmt.Errorf("%w: truncated buffer", ErrDecode)
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) byte() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) uint16() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) uint32() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) uint64() uint64 {
	if b := r.take(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *reader) float64() float64 {
	return math.Float64frombits(r.uint64())
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf)
	switch {
	case n > 0:
		r.buf = r.buf[n:]
		return v
	case n == 0:
		r.err = fmt.Errorf("%w: truncated varint", ErrDecode)
	default:
		r.err = fmt.Errorf("%w: varint overflow", ErrDecode)
	}
	return 0
}
