package utils

import "io"

// maxDrain bounds how much of an unread body is discarded so the
// connection can be reused.
const maxDrain = 64 << 10

// DrainClose discards what is left of a response body (bounded) and closes it.
func DrainClose(rc io.ReadCloser) {
	_, _ = io.CopyN(io.Discard, rc, maxDrain)
	_ = rc.Close()
}
