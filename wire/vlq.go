package wire

import "errors"

var (
	ErrInvalidVLQ     = errors.New("wire: invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("wire: buffer too small for VLQ")
)

// maxVLQLen bounds a VLQ-encoded uint32: five 7-bit groups.
const maxVLQLen = 5

// AppendUint appends v in VLQ form: 7-bit groups, most significant
// first, the high bit of each byte marking continuation.
func AppendUint(dst []byte, v uint32) []byte {
	switch {
	case v >= 1<<28:
		dst = append(dst, byte(v>>28)|0x80)
		fallthrough
	case v >= 1<<21:
		dst = append(dst, byte(v>>21)&0x7F|0x80)
		fallthrough
	case v >= 1<<14:
		dst = append(dst, byte(v>>14)&0x7F|0x80)
		fallthrough
	case v >= 1<<7:
		dst = append(dst, byte(v>>7)&0x7F|0x80)
	}
	return append(dst, byte(v)&0x7F)
}

// DecodeUint decodes a VLQ unsigned integer from the front of *data and
// advances the slice past the consumed bytes.
func DecodeUint(data *[]byte) (uint32, error) {
	var v uint32
	for i := 0; ; i++ {
		if len(*data) == 0 {
			return 0, ErrBufferTooSmall
		}
		if i == maxVLQLen {
			return 0, ErrInvalidVLQ
		}
		c := (*data)[0]
		*data = (*data)[1:]
		v = v<<7 | uint32(c&0x7F)
		if c&0x80 == 0 {
			return v, nil
		}
	}
}
