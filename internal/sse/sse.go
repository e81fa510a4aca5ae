// Package sse implements the server-sent-events wire codec used at the HTTP
// boundary and by the live gateway's upstream stream translation.
//
// The internal event contract is protocol-agnostic; encoding happens only at
// the edges. The decoder is incremental and indifferent to how the byte
// stream is chunked: events split across arbitrary read boundaries are
// reassembled, and malformed event/data pairs are skipped without aborting
// the stream.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// RawEvent is one decoded logical event before JSON interpretation.
type RawEvent struct {
	Name string // value of the "event:" field; "message" when absent
	Data []byte // concatenated "data:" payload
}

// Encode writes one logical event as an event/data pair followed by the
// blank-line terminator. data is JSON-marshaled.
func Encode(w io.Writer, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return fmt.Errorf("sse: write %s event: %w", name, err)
	}
	return nil
}

// Decoder reads logical events from an SSE byte stream.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder wraps r. The reader may deliver bytes at any granularity.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 1<<20)
	return &Decoder{scanner: s}
}

// Next returns the next well-formed event, or io.EOF when the stream ends.
// Field lines that do not form a valid event/data pair are dropped.
func (d *Decoder) Next() (RawEvent, error) {
	name := ""
	var data bytes.Buffer

	for d.scanner.Scan() {
		line := d.scanner.Text()

		// Blank line terminates the current event.
		if strings.TrimSpace(line) == "" {
			if data.Len() == 0 {
				// event: with no data, or stray blank line. Skip.
				name = ""
				continue
			}
			if name == "" {
				name = "message"
			}
			return RawEvent{Name: name, Data: data.Bytes()}, nil
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case strings.HasPrefix(line, ":"):
			// comment line, ignore
		default:
			// Unknown field: drop the line, keep the event.
		}
	}
	if err := d.scanner.Err(); err != nil {
		return RawEvent{}, fmt.Errorf("sse: read: %w", err)
	}

	// Stream ended mid-event; a trailing complete pair without the final
	// blank line still counts.
	if data.Len() > 0 {
		if name == "" {
			name = "message"
		}
		ev := RawEvent{Name: name, Data: data.Bytes()}
		return ev, nil
	}
	return RawEvent{}, io.EOF
}

// DecodeJSON unmarshals an event payload into v, reporting malformed JSON so
// callers can skip the event.
func DecodeJSON(ev RawEvent, v any) error {
	if err := json.Unmarshal(ev.Data, v); err != nil {
		return fmt.Errorf("sse: decode %s payload: %w", ev.Name, err)
	}
	return nil
}
