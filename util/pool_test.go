package util

import "testing"

func TestBufPool(t *testing.T) {
	buf := GetBuf()
	if len(*buf) != DefaultBufSize {
		t.Fatalf("len = %d, want %d", len(*buf), DefaultBufSize)
	}
	PutBuf(buf)
	PutBuf(nil) // must not panic
}
