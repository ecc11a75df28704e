package wire

// storage is the byte array behind one or more Buffer handles. Growth
// replaces data in place, so every handle sharing the storage sees it.
type storage struct {
	data []byte
}

// Buffer is a byte array with a position (next read/write point) and a
// limit (end of valid data). Handles produced by Copy share the storage but
// keep their own cursors.
//
// A Buffer is not safe for concurrent use, and neither are two handles
// sharing one storage.
type Buffer struct {
	store    *storage
	position int
	limit    int
	growable bool
}

// NewChannel allocates a fixed-capacity buffer. Writes past the capacity
// fail with a BufferOverrun error.
func NewChannel(capacity int) (*Buffer, error) {
	if capacity < 0 {
		return nil, newError(KindInvalidSize, "NewChannel", "capacity %d", capacity)
	}
	return &Buffer{
		store: &storage{data: make([]byte, capacity)},
		limit: capacity,
	}, nil
}

// WrapChannel adopts data as the storage of a fixed-capacity buffer. When
// capacity exceeds len(data) the storage is extended with zero bytes, which
// may reallocate; a smaller capacity is raised to len(data).
func WrapChannel(data []byte, capacity int) (*Buffer, error) {
	if capacity < 0 {
		return nil, newError(KindInvalidSize, "WrapChannel", "capacity %d", capacity)
	}
	if capacity < len(data) {
		capacity = len(data)
	}
	data = extend(data, capacity)
	return &Buffer{
		store: &storage{data: data},
		limit: capacity,
	}, nil
}

// NewWireBuffer allocates a growable buffer whose capacity is capacity
// rounded up to a power of two.
func NewWireBuffer(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, newError(KindInvalidSize, "NewWireBuffer", "capacity %d", capacity)
	}
	n, err := NextPowerOfTwo(capacity)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		store:    &storage{data: make([]byte, n)},
		limit:    n,
		growable: true,
	}, nil
}

// WrapWireBuffer adopts data as the storage of a growable buffer. The
// capacity is the larger of capacity and len(data), rounded up to a power
// of two.
func WrapWireBuffer(data []byte, capacity int) (*Buffer, error) {
	if capacity < len(data) {
		capacity = len(data)
	}
	if capacity <= 0 {
		return nil, newError(KindInvalidSize, "WrapWireBuffer", "capacity %d", capacity)
	}
	n, err := NextPowerOfTwo(capacity)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		store:    &storage{data: extend(data, n)},
		limit:    n,
		growable: true,
	}, nil
}

// extend grows data to exactly n bytes, zero filled.
func extend(data []byte, n int) []byte {
	if len(data) >= n {
		return data
	}
	return append(data, make([]byte, n-len(data))...)
}

// NextPowerOfTwo returns n if it is a power of two, otherwise the next
// higher power of two.
func NextPowerOfTwo(n int) (int, error) {
	if n < 1 {
		return 0, newError(KindInvalidSize, "NextPowerOfTwo", "%d < 1", n)
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p, nil
}

// Position returns the offset of the next read or write.
func (b *Buffer) Position() int { return b.position }

// Limit returns the end of valid data.
func (b *Buffer) Limit() int { return b.limit }

// Capacity returns the allocated size of the storage.
func (b *Buffer) Capacity() int { return len(b.store.data) }

// Growable reports whether writes and Reserve may enlarge the storage.
func (b *Buffer) Growable() bool { return b.growable }

// Remaining returns the number of readable bytes before the limit.
func (b *Buffer) Remaining() int { return b.limit - b.position }

// SetPosition moves the cursor. The offset must lie in [0, capacity).
func (b *Buffer) SetPosition(offset int) error {
	if offset < 0 {
		return newError(KindOutOfRange, "SetPosition", "position cannot be negative but is %d", offset)
	}
	if offset >= b.Capacity() {
		return newError(KindOutOfRange, "SetPosition", "position %d beyond capacity %d", offset, b.Capacity())
	}
	b.position = offset
	return nil
}

// SetLimit sets the end of valid data. The offset must lie in
// [position, capacity].
func (b *Buffer) SetLimit(offset int) error {
	if offset < 0 {
		return newError(KindOutOfRange, "SetLimit", "limit cannot be negative but is %d", offset)
	}
	if offset < b.position {
		return newError(KindOutOfRange, "SetLimit", "limit %d below position %d", offset, b.position)
	}
	if offset > b.Capacity() {
		return newError(KindOutOfRange, "SetLimit", "limit %d beyond capacity %d", offset, b.Capacity())
	}
	b.limit = offset
	return nil
}

// Flip switches from writing to reading: the limit becomes the current
// position and the position returns to zero.
func (b *Buffer) Flip() {
	b.limit = b.position
	b.position = 0
}

// Clear resets both cursors to zero.
func (b *Buffer) Clear() {
	b.limit = 0
	b.position = 0
}

// Copy returns a second handle over the same storage, positioned at zero
// with the limit at capacity. Bytes written through either handle are
// visible through the other; the cursors are independent.
func (b *Buffer) Copy() *Buffer {
	return &Buffer{
		store:    b.store,
		limit:    len(b.store.data),
		growable: b.growable,
	}
}

// SharesStorage reports whether b and other are views of the same storage.
func (b *Buffer) SharesStorage(other *Buffer) bool {
	return other != nil && b.store == other.store
}

// Bytes returns the valid data, storage[0:limit]. The slice aliases the
// storage and is invalidated by growth.
func (b *Buffer) Bytes() []byte {
	return b.store.data[:b.limit]
}

// Data returns the whole storage. The slice aliases the storage and is
// invalidated by growth.
func (b *Buffer) Data() []byte {
	return b.store.data
}

// Reserve guarantees room for k more bytes after the position. A growable
// buffer doubles its storage until position+k is below the capacity; a
// fixed buffer reports an overrun instead.
func (b *Buffer) Reserve(k int) error {
	if k < 0 {
		return newError(KindInvalidSize, "Reserve", "cannot reserve %d bytes", k)
	}
	capacity := len(b.store.data)
	room := capacity - b.position
	if k < room {
		return nil
	}
	if !b.growable {
		if k == room {
			return nil
		}
		return overrun("Reserve", b.position, k, capacity)
	}
	if k >= maxInt-b.position {
		return overrun("Reserve", b.position, k, capacity)
	}
	need := b.position + k
	newCap := capacity
	if newCap == 0 {
		newCap = 1
	}
	for need >= newCap {
		if newCap > maxInt/2 {
			newCap = need + 1
			break
		}
		newCap *= 2
	}
	grown := make([]byte, newCap)
	copy(grown, b.store.data)
	b.store.data = grown
	return nil
}

// ensureWritable is called before every write of n bytes.
func (b *Buffer) ensureWritable(op string, n int) error {
	if b.growable && currentConfig().AutoReserve {
		if err := b.Reserve(n); err != nil {
			return err
		}
	}
	if b.position+n > len(b.store.data) {
		return overrun(op, b.position, n, len(b.store.data))
	}
	return nil
}

// ensureReadable is called before every read of n bytes.
func (b *Buffer) ensureReadable(op string, n int) error {
	if n < 0 || b.position+n > b.limit {
		return underrun(op, b.position, n, b.limit)
	}
	return nil
}
