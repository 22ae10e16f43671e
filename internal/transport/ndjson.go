// file: internal/transport/ndjson.go
package transport

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
)

// MaxMessageSize defines the maximum allowed size for a single JSON-RPC message in bytes.
const MaxMessageSize = 1024 * 1024 // 1MB.

// NDJSONReader reads one JSON document per line.
type NDJSONReader struct {
	reader  *bufio.Reader
	maxSize int
}

// NewNDJSONReader wraps r.
func NewNDJSONReader(r io.Reader) *NDJSONReader {
	return &NDJSONReader{reader: bufio.NewReaderSize(r, 64*1024), maxSize: MaxMessageSize}
}

// ReadMessage returns the next non-blank line without its terminator.
//
// A line longer than the limit is consumed whole and reported as a MessageSize error, so
// the caller may keep reading. io.EOF is returned once the stream ends; a final line
// without a newline is still delivered first.
func (r *NDJSONReader) ReadMessage() ([]byte, error) {
	for {
		var (
			buf      bytes.Buffer
			total    int
			tooLarge bool
		)
		for {
			chunk, err := r.reader.ReadSlice('\n')
			total += len(chunk)
			if !tooLarge {
				if total > r.maxSize+1 {
					tooLarge = true
					buf.Reset()
				} else {
					buf.Write(chunk)
				}
			}
			if err == nil {
				break
			}
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if errors.Is(err, io.EOF) && total > 0 {
				break
			}
			return nil, err
		}

		if tooLarge {
			return nil, NewMessageSizeError(total, r.maxSize)
		}
		line := bytes.TrimSpace(buf.Bytes())
		if len(line) == 0 {
			continue
		}
		if len(line) > r.maxSize {
			return nil, NewMessageSizeError(len(line), r.maxSize)
		}
		return line, nil
	}
}

// NDJSONWriter writes one JSON document per line. It is safe for concurrent use; each
// message is written with a single Write call.
type NDJSONWriter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewNDJSONWriter wraps w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{writer: w}
}

// WriteMessage writes message followed by a newline.
func (w *NDJSONWriter) WriteMessage(message []byte) error {
	if len(message) > MaxMessageSize {
		return NewMessageSizeError(len(message), MaxMessageSize)
	}
	if bytes.IndexByte(message, '\n') >= 0 {
		return NewInvalidMessageError("message contains a raw newline")
	}
	frame := make([]byte, 0, len(message)+1)
	frame = append(frame, message...)
	frame = append(frame, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.writer.Write(frame); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	return nil
}
