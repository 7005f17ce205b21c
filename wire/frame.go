// Package wire implements the framed register-access protocol the host
// bridge speaks to a remote target: length-prefixed frames with a
// sequence byte, a CRC-16 trailer and a trailing sync byte that lets
// either side resynchronize after line noise.
package wire

import "errors"

const (
	FrameHeaderSize  = 2 // length + sequence
	FrameTrailerSize = 3 // crc hi, crc lo, sync
	FrameLengthMin   = FrameHeaderSize + FrameTrailerSize
	FrameLengthMax   = 64

	// SyncByte terminates every frame and is the resync anchor
	SyncByte = 0x7E

	// SeqMask covers the rolling sequence bits; the remaining high
	// bits of the sequence byte always read SeqDest, which gives the
	// decoder an extra framing check.
	SeqMask = 0x0F
	SeqDest = 0x10
)

// ErrFrameTooLarge reports a payload that cannot fit one frame.
var ErrFrameTooLarge = errors.New("wire: payload too large for frame")

// AppendFrame appends one framed payload to dst. Only the low SeqMask
// bits of seq travel on the wire.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	total := FrameHeaderSize + len(payload) + FrameTrailerSize
	if total > FrameLengthMax {
		return dst, ErrFrameTooLarge
	}
	start := len(dst)
	dst = append(dst, byte(total), seq&SeqMask|SeqDest)
	dst = append(dst, payload...)
	crc := CRC16(dst[start : start+FrameHeaderSize+len(payload)])
	return append(dst, byte(crc>>8), byte(crc), SyncByte), nil
}

// Decoder reassembles frames from a byte stream. Anything that fails a
// framing check drops the decoder out of sync; it then discards input
// up to the next sync byte to recover from garbage on the line.
type Decoder struct {
	buf    []byte
	synced bool
}

// NewDecoder returns a decoder that starts in sync.
func NewDecoder() *Decoder {
	return &Decoder{synced: true}
}

// Feed appends raw bytes read from the transport.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next extracts the next complete frame. ok is false when no complete
// frame is buffered yet. The returned payload aliases the decoder's
// buffer only until the next Feed or Next call.
func (d *Decoder) Next() (seq uint8, payload []byte, ok bool) {
	for {
		if !d.synced {
			// Hunt for the sync byte, discard everything before it
			idx := -1
			for i, b := range d.buf {
				if b == SyncByte {
					idx = i
					break
				}
			}
			if idx < 0 {
				d.buf = d.buf[:0]
				return 0, nil, false
			}
			d.buf = d.buf[idx+1:]
			d.synced = true
		}

		// Skip leading sync bytes between frames
		for len(d.buf) > 0 && d.buf[0] == SyncByte {
			d.buf = d.buf[1:]
		}
		if len(d.buf) < FrameLengthMin {
			return 0, nil, false
		}

		frameLen := int(d.buf[0])
		if frameLen < FrameLengthMin || frameLen > FrameLengthMax {
			d.synced = false
			continue
		}
		if d.buf[1]&^SeqMask != SeqDest {
			d.synced = false
			continue
		}
		if len(d.buf) < frameLen {
			return 0, nil, false
		}
		if d.buf[frameLen-1] != SyncByte {
			d.synced = false
			continue
		}

		wantCRC := uint16(d.buf[frameLen-3])<<8 | uint16(d.buf[frameLen-2])
		if CRC16(d.buf[:frameLen-FrameTrailerSize]) != wantCRC {
			d.synced = false
			continue
		}

		seq = d.buf[1] & SeqMask
		payload = d.buf[FrameHeaderSize : frameLen-FrameTrailerSize]
		d.buf = d.buf[frameLen:]
		return seq, payload, true
	}
}
