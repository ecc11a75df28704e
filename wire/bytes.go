package wire

// ===== VARIABLE LENGTH FIELDS =====

// ReadRawLenPlus reads a varint length and then that many bytes. The
// result is a copy; it does not alias the buffer. On underrun the position
// is restored to the start of the length prefix.
func ReadRawLenPlus(buf *Buffer) ([]byte, error) {
	start := buf.position
	length, err := ReadRawVarint(buf)
	if err != nil {
		return nil, err
	}
	if length > uint64(buf.Remaining()) {
		need := buf.Remaining() + 1
		if length < uint64(maxInt) {
			need = int(length)
		}
		e := underrun("ReadRawLenPlus", buf.position, need, buf.limit)
		buf.position = start
		return nil, e
	}
	n := int(length)
	out := make([]byte, n)
	copy(out, buf.store.data[buf.position:buf.position+n])
	buf.position += n
	return out, nil
}

// SkipLenPlus advances past a length-prefixed payload.
func SkipLenPlus(buf *Buffer) error {
	start := buf.position
	length, err := ReadRawVarint(buf)
	if err != nil {
		return err
	}
	if length > uint64(buf.Remaining()) {
		buf.position = start
		return newError(KindBufferUnderrun, "SkipLenPlus", "cannot skip %d bytes: only %d available", length, buf.limit-start)
	}
	buf.position += int(length)
	return nil
}

// WriteRawBytes copies b to the current position without any prefix.
func WriteRawBytes(buf *Buffer, b []byte) error {
	if err := buf.ensureWritable("WriteRawBytes", len(b)); err != nil {
		return err
	}
	copy(buf.store.data[buf.position:], b)
	buf.position += len(b)
	return nil
}

// WriteLenPlusField writes a LenPlus header for fieldNumber, the length of
// b as a varint, then b itself. The bytes are opaque here; text encoding is
// the caller's concern.
func WriteLenPlusField(buf *Buffer, b []byte, fieldNumber uint64) error {
	if err := WriteFieldHeader(buf, fieldNumber, LenPlus); err != nil {
		return err
	}
	if err := WriteRawVarint(buf, uint64(len(b))); err != nil {
		return err
	}
	return WriteRawBytes(buf, b)
}

// LenPlusSize returns the encoded size of b without its header.
func LenPlusSize(b []byte) int {
	return LengthAsVarint(uint64(len(b))) + len(b)
}

const maxInt = int(^uint(0) >> 1)
