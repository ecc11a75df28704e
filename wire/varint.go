package wire

// MaxVarintLen is the longest encoding of a 64-bit value.
const MaxVarintLen = 10

// LengthAsVarint returns the number of bytes needed to encode v.
func LengthAsVarint(v uint64) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	case v < 1<<35:
		return 5
	case v < 1<<42:
		return 6
	case v < 1<<49:
		return 7
	case v < 1<<56:
		return 8
	case v < 1<<63:
		return 9
	default:
		return 10
	}
}

// ReadRawVarint decodes a varint at the current position and advances past
// it. On failure the position is left where it was.
func ReadRawVarint(buf *Buffer) (uint64, error) {
	data := buf.store.data
	offset := buf.position

	var result uint64
	var shift uint
	for i := 0; i < MaxVarintLen; i++ {
		if offset >= buf.limit {
			return 0, underrun("ReadRawVarint", buf.position, offset-buf.position+1, buf.limit)
		}
		b := data[offset]
		offset++
		if i == MaxVarintLen-1 && b > 1 {
			return 0, newError(KindOutOfRange, "ReadRawVarint", "varint overflows 64 bits at offset %d", buf.position)
		}

		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			buf.position = offset
			return result, nil
		}
		shift += 7
	}
	return 0, newError(KindOutOfRange, "ReadRawVarint", "varint longer than %d bytes at offset %d", MaxVarintLen, buf.position)
}

// WriteRawVarint encodes v as a varint at the current position. Every input
// is treated as an unsigned 64-bit quantity; signed values must be
// zig-zag encoded first. Nothing is written if v does not fit.
func WriteRawVarint(buf *Buffer, v uint64) error {
	n := LengthAsVarint(v)
	if err := buf.ensureWritable("WriteRawVarint", n); err != nil {
		return err
	}
	data := buf.store.data
	offset := buf.position
	for v >= 0x80 {
		data[offset] = byte(v) | 0x80
		offset++
		v >>= 7
	}
	data[offset] = byte(v)
	buf.position = offset + 1
	return nil
}

// WriteVarintField writes a Varint header for fieldNumber followed by v.
func WriteVarintField(buf *Buffer, v uint64, fieldNumber uint64) error {
	if err := WriteFieldHeader(buf, fieldNumber, Varint); err != nil {
		return err
	}
	return WriteRawVarint(buf, v)
}

// SkipVarint advances past a varint without decoding it.
func SkipVarint(buf *Buffer) error {
	_, err := ReadRawVarint(buf)
	return err
}

// ===== ZIG-ZAG =====

// EncodeSint32 maps a signed 32-bit value to an unsigned one so that small
// magnitudes stay small: 0, -1, 1, -2 become 0, 1, 2, 3.
func EncodeSint32(v int32) uint64 {
	return uint64((uint32(v) << 1) ^ uint32(v>>31))
}

// DecodeSint32 inverts EncodeSint32. Bits above 32 are ignored.
func DecodeSint32(encoded uint64) int32 {
	u := uint32(encoded)
	return int32((u >> 1) ^ -(u & 1))
}

// EncodeSint64 is the 64-bit analog of EncodeSint32.
func EncodeSint64(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// DecodeSint64 inverts EncodeSint64.
func DecodeSint64(encoded uint64) int64 {
	return int64((encoded >> 1) ^ -(encoded & 1))
}
