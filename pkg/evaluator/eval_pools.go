package evaluator

import (
	"bytes"
	"sync"
)

// bufPool holds the buffers of string-building builtins (join, implode,
// tojson of large values). Each caller owns a buffer until it releases it.
var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// acquireBuf returns a reset buffer from the pool.
func acquireBuf() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// releaseBuf returns b to the pool. Buffers larger than 64 KiB are dropped
// so that one huge string does not stay reachable.
func releaseBuf(b *bytes.Buffer) {
	if b.Cap() <= 64*1024 {
		bufPool.Put(b)
	}
}
