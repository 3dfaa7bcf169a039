package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vanpelt/sitecraft/internal/recovery"
)

// DefaultFlushInterval bounds how often streamed text is pushed to the
// transcript, so a fast stream doesn't trigger a redraw per chunk.
const DefaultFlushInterval = 50 * time.Millisecond

const readChunkSize = 4096

type chunk struct {
	data []byte
	err  error
}

// ReadStream reads r until EOF, decoding UTF-8 across chunk boundaries, and
// calls flush with the text accumulated since the previous flush. flush runs
// at least every interval while text is pending and once more at EOF, always
// on the calling goroutine and in stream order.
//
// If ctx is cancelled, ReadStream returns ctx.Err() without flushing what is
// still buffered, so nothing is written after the caller has gone away.
func ReadStream(ctx context.Context, r io.Reader, interval time.Duration, flush func(string)) error {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}

	chunks := make(chan chunk)
	done := make(chan struct{})
	defer close(done)

	recovery.SafeGo("stream-reader", func() {
		buf := make([]byte, readChunkSize)
		for {
			n, err := r.Read(buf)
			var data []byte
			if n > 0 {
				data = make([]byte, n)
				copy(data, buf[:n])
			}
			select {
			case chunks <- chunk{data: data, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []byte
	var text strings.Builder

	emit := func() {
		if text.Len() > 0 {
			flush(text.String())
			text.Reset()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			emit()

		case c := <-chunks:
			if len(c.data) > 0 {
				pending = append(pending, c.data...)
				n := completeUTF8(pending)
				text.Write(pending[:n])
				pending = append(pending[:0], pending[n:]...)
			}

			if c.err == nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(c.err, io.EOF) {
				// Hand over whatever arrived intact before the failure
				emit()
				return c.err
			}

			// A truncated rune at EOF is written as-is rather than dropped
			if len(pending) > 0 {
				text.Write(pending)
			}
			emit()
			return nil
		}
	}
}

// completeUTF8 returns the length of the longest prefix of b that does not
// end in the middle of a multi-byte rune.
func completeUTF8(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
