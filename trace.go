package qorus

import (
	"encoding/binary"
	"fmt"

	"github.com/smallnest/ringbuffer"

	"github.com/qorus-infer/qorus/util/bytex"
)

// traceRecordSize is the fixed on-wire size of one TraceRecord:
// layer (uint32) + step/position (uint32) + code (uint8, padded) +
// nanos elapsed (int64).
const traceRecordSize = 4 + 4 + 4 + 8

// TraceRecord is one per-layer diagnostic entry recorded by the
// forward executor: which layer ran, at which absolute position, how
// long it took, and its Code. Forward records a layer only once it
// completes, so the records it writes always carry CodeOK; a layer
// that fails is not recorded.
type TraceRecord struct {
	Layer    uint32
	Position uint32
	Code     Code
	Nanos    int64
}

func (r TraceRecord) String() string {
	return fmt.Sprintf("layer=%d pos=%d code=%s dur=%dns", r.Layer, r.Position, r.Code, r.Nanos)
}

// Tracer is a bounded, caller-drainable diagnostic recorder for the
// forward executor: one record per layer evaluated, drained on demand
// instead of printed. Built on github.com/smallnest/ringbuffer, used
// as a fixed-capacity ring of recent records rather than a byte stream.
type Tracer struct {
	rb *ringbuffer.RingBuffer
}

// NewTracer allocates a Tracer capable of holding roughly capacity
// records before the oldest are evicted.
func NewTracer(capacity int) *Tracer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Tracer{rb: ringbuffer.New(capacity * traceRecordSize)}
}

// Record appends one TraceRecord, evicting the oldest record(s) if the
// ring is full. A nil Tracer silently discards records, so callers can
// pass one through optionally without a nil check at every call site.
func (t *Tracer) Record(r TraceRecord) {
	if t == nil || t.rb == nil {
		return
	}
	var buf [traceRecordSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], r.Layer)
	binary.LittleEndian.PutUint32(buf[4:8], r.Position)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.Code))
	binary.LittleEndian.PutUint64(buf[12:20], uint64(r.Nanos))

	for t.rb.Free() < traceRecordSize && t.rb.Length() >= traceRecordSize {
		var discard [traceRecordSize]byte
		_, _ = t.rb.Read(discard[:])
	}
	_, _ = t.rb.Write(buf[:])
}

// Drain removes and returns every buffered TraceRecord, oldest first.
// The scratch read buffer comes from util/bytex's pool rather than a
// fresh allocation per drain.
func (t *Tracer) Drain() []TraceRecord {
	if t == nil || t.rb == nil {
		return nil
	}
	n := t.rb.Length() / traceRecordSize
	if n == 0 {
		return nil
	}
	out := make([]TraceRecord, 0, n)
	buf := bytex.GetBytes(uint64(n * traceRecordSize))
	defer bytex.Put(buf)

	read, _ := t.rb.Read(buf[:n*traceRecordSize])
	for off := 0; off+traceRecordSize <= read; off += traceRecordSize {
		b := buf[off : off+traceRecordSize]
		out = append(out, TraceRecord{
			Layer:    binary.LittleEndian.Uint32(b[0:4]),
			Position: binary.LittleEndian.Uint32(b[4:8]),
			Code:     Code(binary.LittleEndian.Uint32(b[8:12])),
			Nanos:    int64(binary.LittleEndian.Uint64(b[12:20])),
		})
	}
	return out
}
