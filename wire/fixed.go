package wire

import (
	"encoding/binary"
)

// ===== 32- AND 64-BIT FIXED LENGTH FIELDS =====

// ReadRawB32 reads 4 little-endian bytes as an unsigned value. Callers that
// want a signed value reinterpret with int32().
func ReadRawB32(buf *Buffer) (uint32, error) {
	if err := buf.ensureReadable("ReadRawB32", 4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(buf.store.data[buf.position:])
	buf.position += 4
	return v, nil
}

// WriteRawB32 writes v as 4 little-endian bytes.
func WriteRawB32(buf *Buffer, v uint32) error {
	if err := buf.ensureWritable("WriteRawB32", 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf.store.data[buf.position:], v)
	buf.position += 4
	return nil
}

// WriteB32Field writes a B32 header for fieldNumber followed by v.
func WriteB32Field(buf *Buffer, v uint32, fieldNumber uint64) error {
	if err := WriteFieldHeader(buf, fieldNumber, B32); err != nil {
		return err
	}
	return WriteRawB32(buf, v)
}

// ReadRawB64 reads 8 little-endian bytes as an unsigned value.
func ReadRawB64(buf *Buffer) (uint64, error) {
	if err := buf.ensureReadable("ReadRawB64", 8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(buf.store.data[buf.position:])
	buf.position += 8
	return v, nil
}

// WriteRawB64 writes v as 8 little-endian bytes.
func WriteRawB64(buf *Buffer, v uint64) error {
	if err := buf.ensureWritable("WriteRawB64", 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(buf.store.data[buf.position:], v)
	buf.position += 8
	return nil
}

// WriteB64Field writes a B64 header for fieldNumber followed by v.
func WriteB64Field(buf *Buffer, v uint64, fieldNumber uint64) error {
	if err := WriteFieldHeader(buf, fieldNumber, B64); err != nil {
		return err
	}
	return WriteRawB64(buf, v)
}

// ===== LONGER FIXED-LENGTH BYTE FIELDS =====
//
// B128, B160 and B256 payloads are opaque byte blocks (IVs, digests) copied
// verbatim; there is no byte order to apply.

func readBlock(buf *Buffer, op string, n int) ([]byte, error) {
	if err := buf.ensureReadable(op, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf.store.data[buf.position:buf.position+n])
	buf.position += n
	return out, nil
}

func writeBlock(buf *Buffer, op string, v []byte, n int) error {
	if len(v) != n {
		return newError(KindInvalidSize, op, "block must be %d bytes, got %d", n, len(v))
	}
	if err := buf.ensureWritable(op, n); err != nil {
		return err
	}
	copy(buf.store.data[buf.position:], v)
	buf.position += n
	return nil
}

func writeBlockField(buf *Buffer, op string, pt PrimType, v []byte, fieldNumber uint64) error {
	n, _ := pt.FixedWidth()
	if len(v) != n {
		// checked before the header goes out
		return newError(KindInvalidSize, op, "block must be %d bytes, got %d", n, len(v))
	}
	if err := WriteFieldHeader(buf, fieldNumber, pt); err != nil {
		return err
	}
	return writeBlock(buf, op, v, n)
}

// ReadRawB128 reads a 16-byte block.
func ReadRawB128(buf *Buffer) ([]byte, error) { return readBlock(buf, "ReadRawB128", 16) }

// ReadRawB160 reads a 20-byte block.
func ReadRawB160(buf *Buffer) ([]byte, error) { return readBlock(buf, "ReadRawB160", 20) }

// ReadRawB256 reads a 32-byte block.
func ReadRawB256(buf *Buffer) ([]byte, error) { return readBlock(buf, "ReadRawB256", 32) }

// WriteRawB128 writes a 16-byte block.
func WriteRawB128(buf *Buffer, v []byte) error { return writeBlock(buf, "WriteRawB128", v, 16) }

// WriteRawB160 writes a 20-byte block.
func WriteRawB160(buf *Buffer, v []byte) error { return writeBlock(buf, "WriteRawB160", v, 20) }

// WriteRawB256 writes a 32-byte block.
func WriteRawB256(buf *Buffer, v []byte) error { return writeBlock(buf, "WriteRawB256", v, 32) }

// WriteB128Field writes a B128 header for fieldNumber followed by v.
func WriteB128Field(buf *Buffer, v []byte, fieldNumber uint64) error {
	return writeBlockField(buf, "WriteB128Field", B128, v, fieldNumber)
}

// WriteB160Field writes a B160 header for fieldNumber followed by v.
func WriteB160Field(buf *Buffer, v []byte, fieldNumber uint64) error {
	return writeBlockField(buf, "WriteB160Field", B160, v, fieldNumber)
}

// WriteB256Field writes a B256 header for fieldNumber followed by v.
func WriteB256Field(buf *Buffer, v []byte, fieldNumber uint64) error {
	return writeBlockField(buf, "WriteB256Field", B256, v, fieldNumber)
}
