// Package pool provides bucketed sync.Pool instances for the temporary
// per-pixel fields an interpolation call needs (upsized vector components
// and occlusion masks). Buffers are organized by size class to minimize
// waste.
package pool

import "sync"

// Size classes for bucketed pools. A 1080p luma plane needs a 4M buffer.
const (
	Size4K   = 4096
	Size16K  = 16384
	Size64K  = 65536
	Size256K = 262144
	Size1M   = 1048576
	Size4M   = 4194304
	Size16M  = 16777216
)

var sizes = [...]int{Size4K, Size16K, Size64K, Size256K, Size1M, Size4M, Size16M}

// bucketIndex returns the smallest pool whose class holds size bytes.
// Sizes above the largest class share the last pool.
func bucketIndex(size int) int {
	for i, sz := range sizes {
		if size <= sz {
			return i
		}
	}
	return len(sizes) - 1
}

var pools [len(sizes)]sync.Pool

func init() {
	for i := range pools {
		sz := sizes[i]
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, sz)
				return &b
			},
		}
	}
}

// Get returns a byte slice of length size from the pool. Its contents are
// unspecified. The caller must call Put when done.
func Get(size int) []byte {
	bp := pools[bucketIndex(size)].Get().(*[]byte)
	b := *bp
	if cap(b) < size {
		b = make([]byte, size)
		*bp = b
		return b
	}
	return b[:size]
}

// Put returns a byte slice obtained from Get. Slices below the smallest
// class are dropped.
func Put(b []byte) {
	c := cap(b)
	if c < Size4K {
		return
	}
	// A buffer goes back to the largest class it can fully serve.
	idx := bucketIndex(c)
	if sizes[idx] > c && idx > 0 {
		idx--
	}
	b = b[:c]
	pools[idx].Put(&b)
}

// Fields is a set of equally sized buffers borrowed together.
type Fields struct {
	bufs [][]byte
}

// GetFields borrows n buffers of size bytes each.
func GetFields(n, size int) *Fields {
	f := &Fields{bufs: make([][]byte, n)}
	for i := range f.bufs {
		f.bufs[i] = Get(size)
	}
	return f
}

// At returns the i-th buffer.
func (f *Fields) At(i int) []byte {
	return f.bufs[i]
}

// Release returns every buffer to the pool. The Fields must not be used
// afterwards.
func (f *Fields) Release() {
	for i, b := range f.bufs {
		Put(b)
		f.bufs[i] = nil
	}
}
