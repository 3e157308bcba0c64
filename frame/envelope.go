// Package frame implements the MySQL envelope framing codec: the
// length-prefixed packet layer that reassembles inbound envelopes into
// logical messages, slices outbound messages into envelopes, and
// enforces the per-exchange sequence-id discipline (spec.md §3, §4.2).
package frame

import (
	"io"

	"github.com/mickamy/mysqlwire/mysqlerr"
)

// MaxPayload is the largest payload a single envelope may carry
// (2^24 - 1). A logical message that is an exact multiple of this
// length is terminated by one more, zero-length envelope.
const MaxPayload = 1<<24 - 1

// HeaderSize is the length of an envelope header: 3-byte length + 1-byte
// sequence id.
const HeaderSize = 4

// SeqCounter is the shared sequence-id state one exchange's request
// and response envelopes advance together: the byte alternates between
// directions within an exchange (server's greeting is 0, the client's
// handshake response is 1, the server's next reply is 2, ...), so a
// connection's Joiner and Slicer must advance the same counter rather
// than each keeping an independent one (spec.md §3 "Sequence id").
type SeqCounter struct {
	n uint8
}

// NewSeqCounter returns a counter starting at 0.
func NewSeqCounter() *SeqCounter {
	return &SeqCounter{}
}

// Reset restarts the counter at 0.
func (c *SeqCounter) Reset() {
	c.n = 0
}

func (c *SeqCounter) peek() uint8 { return c.n }
func (c *SeqCounter) advance()    { c.n++ }

// Joiner reassembles envelopes arriving on one direction of one
// connection into logical messages. It is not safe for concurrent use;
// all calls happen on the connection's single reactor goroutine.
type Joiner struct {
	frags [][]byte
	total int
	seq   *SeqCounter
	track bool
}

// NewJoiner creates a Joiner with its own sequence counter and tracking
// enabled, expecting the first envelope to carry sequence id 0.
func NewJoiner() *Joiner {
	return &Joiner{seq: NewSeqCounter(), track: true}
}

// NewJoinerShared creates a Joiner that advances seq, the same counter
// a connection's Slicer uses, so request and response envelopes within
// one exchange share a single sequence (spec.md §3, §4.7).
func NewJoinerShared(seq *SeqCounter) *Joiner {
	return &Joiner{seq: seq, track: true}
}

// ResetSequence restarts the expected sequence id at 0. Called at every
// exchange boundary that resets the sequence id (spec.md §3, §4.7).
func (j *Joiner) ResetSequence() {
	j.seq.Reset()
}

// SetTracking toggles sequence-id verification. Disabled only in the
// rare case an exchange explicitly opts out (spec.md §4.2 step 2 note).
func (j *Joiner) SetTracking(track bool) {
	j.track = track
}

// Feed reads one envelope header+payload from r and folds it into the
// in-flight message. When the envelope completes a logical message (a
// payload shorter than MaxPayload, including zero), it returns the
// joined bytes and done=true. Otherwise it returns done=false and the
// caller should call Feed again.
func (j *Joiner) Feed(r io.Reader) (msg []byte, done bool, err error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		j.release()
		return nil, false, mysqlerr.Wrap(mysqlerr.KindTransportClosed, true, err, "frame: read envelope header")
	}

	length := int(hdr[0]) | int(hdr[1])<<8 | int(hdr[2])<<16
	seq := hdr[3]

	if j.track {
		if seq != j.seq.peek() {
			j.release()
			return nil, false, mysqlerr.New(mysqlerr.KindSequenceMismatch, true,
				"expected sequence id %d, got %d", j.seq.peek(), seq)
		}
		j.seq.advance()
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			j.release()
			return nil, false, mysqlerr.Wrap(mysqlerr.KindTransportClosed, true, err, "frame: read envelope payload")
		}
	}

	j.frags = append(j.frags, payload)
	j.total += length

	if length < MaxPayload {
		joined := j.join()
		j.release()
		return joined, true, nil
	}
	return nil, false, nil
}

func (j *Joiner) join() []byte {
	if len(j.frags) == 1 {
		return j.frags[0]
	}
	out := make([]byte, 0, j.total)
	for _, f := range j.frags {
		out = append(out, f...)
	}
	return out
}

// Close releases any accumulated fragments without emitting a message.
func (j *Joiner) Close() {
	j.release()
}

func (j *Joiner) release() {
	j.frags = nil
	j.total = 0
}

// Slicer slices a logical outbound message into fixed-size envelopes,
// supplying sequence ids from a counter the caller controls (the
// exchange engine owns sequencing, per spec.md §4.7).
type Slicer struct {
	seq   *SeqCounter
	track bool
}

// NewSlicer creates a Slicer with its own counter, starting at
// sequence id 0.
func NewSlicer() *Slicer {
	return &Slicer{seq: NewSeqCounter(), track: true}
}

// NewSlicerShared creates a Slicer that advances seq, the same counter
// a connection's Joiner uses (spec.md §3, §4.7).
func NewSlicerShared(seq *SeqCounter) *Slicer {
	return &Slicer{seq: seq, track: true}
}

// ResetSequence restarts the outbound sequence id at 0.
func (s *Slicer) ResetSequence() {
	s.seq.Reset()
}

// SetTracking toggles sequence counting; when disabled every header
// still gets id 0 (used only for messages that never participate in an
// exchange's sequencing, if ever needed).
func (s *Slicer) SetTracking(track bool) {
	s.track = track
}

// Encode slices payload into one or more envelopes and writes them to w.
// A payload whose length is an exact multiple of MaxPayload (including
// zero) always ends with one more, shorter envelope so the boundary
// behavior in spec.md §8 holds.
func (s *Slicer) Encode(w io.Writer, payload []byte) error {
	off := 0
	for {
		n := len(payload) - off
		if n > MaxPayload {
			n = MaxPayload
		}
		if err := s.writeEnvelope(w, payload[off:off+n]); err != nil {
			return err
		}
		off += n
		if n < MaxPayload {
			return nil
		}
	}
}

func (s *Slicer) writeEnvelope(w io.Writer, chunk []byte) error {
	var hdr [HeaderSize]byte
	l := len(chunk)
	hdr[0] = byte(l)
	hdr[1] = byte(l >> 8)
	hdr[2] = byte(l >> 16)
	seq := byte(0)
	if s.track {
		seq = s.seq.peek()
		s.seq.advance()
	}
	hdr[3] = seq

	if _, err := w.Write(hdr[:]); err != nil {
		return mysqlerr.Wrap(mysqlerr.KindTransportClosed, true, err, "frame: write envelope header")
	}
	if len(chunk) > 0 {
		if _, err := w.Write(chunk); err != nil {
			return mysqlerr.Wrap(mysqlerr.KindTransportClosed, true, err, "frame: write envelope payload")
		}
	}
	return nil
}
