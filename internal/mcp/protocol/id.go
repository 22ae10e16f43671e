// file: internal/mcp/protocol/id.go

// Package protocol defines the JSON-RPC 2.0 envelopes and MCP payload types exchanged
// between toolwire clients and servers.
package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ID is a JSON-RPC correlation id. It holds the canonical JSON encoding of either a
// number or a string, so two IDs compare equal exactly when they identify the same
// request. The zero value is the absent id and encodes as null.
type ID struct {
	raw string
}

var idCounter atomic.Int64

// NextID returns a fresh numeric id. Ids are unique for the lifetime of the process.
func NextID() ID {
	return NewNumberID(idCounter.Add(1))
}

// NewNumberID returns a numeric id.
func NewNumberID(n int64) ID {
	return ID{raw: strconv.FormatInt(n, 10)}
}

// NewStringID returns a string id.
func NewStringID(s string) ID {
	b, _ := json.Marshal(s)
	return ID{raw: string(b)}
}

// IsZero reports whether the id is absent.
func (id ID) IsZero() bool {
	return id.raw == ""
}

// String returns the JSON form of the id, or "null" when absent.
func (id ID) String() string {
	if id.raw == "" {
		return "null"
	}
	return id.raw
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.raw == "" {
		return []byte("null"), nil
	}
	return []byte(id.raw), nil
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers are normalized so that
// 7 and 7.0 address the same request.
func (id *ID) UnmarshalJSON(data []byte) error {
	parsed, err := parseID(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseID(data []byte) (ID, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ID{}, nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ID{}, errors.Wrap(err, "invalid string id")
		}
		return NewStringID(s), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return ID{}, errors.Wrap(err, "invalid numeric id")
		}
		if i, err := n.Int64(); err == nil {
			return NewNumberID(i), nil
		}
		if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
			return NewNumberID(int64(f)), nil
		}
		return ID{raw: n.String()}, nil
	default:
		return ID{}, errors.Newf("id must be a string or number, got %s", truncate(data, 32))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
