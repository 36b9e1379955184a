package util

import "sync"

// DefaultBufSize is the per-connection read buffer, and with it the
// longest line a server may send: 512 bytes of message plus room for
// IRCv3 message tags.
const DefaultBufSize = 16 << 10

// BufPool provides reusable read buffers so that a reconnecting
// session does not allocate a fresh one per connection.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
