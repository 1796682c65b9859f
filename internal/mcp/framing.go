package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxSSEEventSize is the maximum size of a single SSE event (1MB).
const MaxSSEEventSize = 1024 * 1024

// DebugLogging enables logging of raw response bodies at debug level.
var DebugLogging = false

var sseFieldPrefixes = [][]byte{
	[]byte("event:"),
	[]byte("data:"),
	[]byte("id:"),
	[]byte("retry:"),
	[]byte(":"),
}

// isEventStream reports whether the body is framed as server-sent events.
// The decision is made on the body's first token, not on Content-Type,
// since the service does not set it reliably.
func isEventStream(body []byte) bool {
	for _, p := range sseFieldPrefixes {
		if bytes.HasPrefix(body, p) {
			return true
		}
	}
	return false
}

// joinEventData concatenates the data of every event in an SSE body.
// Lines within one event and consecutive events are both joined with "\n".
func joinEventData(body []byte) ([]byte, error) {
	scanner := newSSEScanner(bytes.NewReader(body), MaxSSEEventSize)
	var parts [][]byte
	for {
		event, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(event.Data) > 0 {
			parts = append(parts, event.Data)
		}
	}
	return bytes.Join(parts, []byte("\n")), nil
}

// decodeBody turns a 2xx response body into a Response, handling both
// plain JSON and SSE framing.
func decodeBody(raw []byte, header http.Header) Response {
	payload := bytes.TrimSpace(raw)
	if isEventStream(payload) {
		data, err := joinEventData(payload)
		if err != nil {
			return errResponse(ErrorKindDecode, 0, header, "JSON decode error: %v - Response: %s", err, raw)
		}
		payload = data
	}

	var env rpcResponse
	if err := json.Unmarshal(payload, &env); err != nil {
		return errResponse(ErrorKindDecode, 0, header, "JSON decode error: %v - Response: %s", err, raw)
	}
	if env.Error != nil {
		return Response{
			Header: header,
			Err: &TransportError{
				Kind:    ErrorKindRPC,
				Status:  env.Error.Code,
				Message: env.Error.Error(),
			},
		}
	}
	return Response{Result: env.Result, Header: header}
}

type sseEvent struct {
	ID    string
	Event string
	Data  []byte
}

// sseScanner parses SSE events from a reader.
type sseScanner struct {
	reader   *bufio.Reader
	maxSize  int
	currSize int
}

func newSSEScanner(r io.Reader, maxSize int) *sseScanner {
	return &sseScanner{
		reader:  bufio.NewReader(r),
		maxSize: maxSize,
	}
}

// Next reads the next SSE event. It returns io.EOF when the body is exhausted.
func (s *sseScanner) Next() (*sseEvent, error) {
	event := &sseEvent{}
	var dataLines [][]byte
	s.currSize = 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			if errors.Is(err, io.EOF) && len(dataLines) > 0 {
				// Unterminated final event
				event.Data = bytes.Join(dataLines, []byte("\n"))
				return event, nil
			}
			return nil, err
		}
		atEOF := err != nil

		s.currSize += len(line)
		if s.currSize > s.maxSize {
			return nil, fmt.Errorf("SSE event exceeds maximum size of %d bytes", s.maxSize)
		}

		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))

		// Empty line = dispatch event
		if len(line) == 0 {
			if len(dataLines) > 0 || event.ID != "" || event.Event != "" {
				event.Data = bytes.Join(dataLines, []byte("\n"))
				return event, nil
			}
			if atEOF {
				return nil, io.EOF
			}
			continue
		}

		if line[0] != ':' {
			var field, value []byte
			colonIdx := bytes.IndexByte(line, ':')
			if colonIdx == -1 {
				field = line
			} else {
				field = line[:colonIdx]
				value = line[colonIdx+1:]
				if len(value) > 0 && value[0] == ' ' {
					value = value[1:]
				}
			}

			switch string(field) {
			case "id":
				event.ID = string(value)
			case "event":
				event.Event = string(value)
			case "data":
				dataLines = append(dataLines, value)
			}
		}

		if atEOF {
			if len(dataLines) > 0 {
				event.Data = bytes.Join(dataLines, []byte("\n"))
				return event, nil
			}
			return nil, io.EOF
		}
	}
}
