// file: internal/mcp/server/stdio.go
package server

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/transport"
)

type inbound struct {
	line []byte
	err  error
}

// ServeStdio reads newline-delimited messages from in and writes replies to out, one
// message at a time, until in reaches EOF or ctx is cancelled. EOF is a clean shutdown
// and returns nil. If in is an io.Closer it is closed on cancellation to release the
// reader; otherwise the reader goroutine stays blocked until in yields or the process exits.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := transport.NewNDJSONReader(in)
	writer := transport.NewNDJSONWriter(out)
	s.logger.Info("Serving MCP over stdio.")

	if c, ok := in.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	lines := make(chan inbound)
	go func() {
		defer close(lines)
		for {
			line, err := reader.ReadMessage()
			select {
			case lines <- inbound{line: line, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !isSizeError(err) {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping stdio server.")
			return errors.WithStack(ctx.Err())
		case msg, ok := <-lines:
			if !ok {
				return errors.WithStack(ctx.Err())
			}
			if msg.err != nil {
				if ctx.Err() != nil {
					return errors.WithStack(ctx.Err())
				}
				if isSizeError(msg.err) {
					s.logger.Warn("Skipping oversized message.", "error", msg.err)
					continue
				}
				if errors.Is(msg.err, io.EOF) {
					s.logger.Info("Input closed, stopping stdio server.")
					return nil
				}
				return errors.Wrap(msg.err, "failed to read from stdin")
			}

			reply, err := s.HandleMessage(ctx, msg.line)
			if err != nil {
				s.logger.Error("Failed to build reply.", "error", err)
				continue
			}
			if reply == nil {
				continue
			}
			if err := writer.WriteMessage(reply); err != nil {
				return errors.Wrap(err, "failed to write reply to stdout")
			}
		}
	}
}

func isSizeError(err error) bool {
	var tErr *transport.Error
	return errors.As(err, &tErr) && tErr.Type == transport.ErrorTypeMessageSize
}
