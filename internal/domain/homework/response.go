// internal/domain/homework/response.go
package homework

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	keyHomeworks   = "homeworks"
	keyCurrentDate = "current_date"
	keyName        = "homework_name"
	keyStatus      = "status"
)

// Record is a single homework entry as reported upstream. Keys other than
// homework_name and status are kept untouched.
type Record map[string]json.RawMessage

// Response is the validated view of a homework_statuses payload.
type Response struct {
	Homeworks   []Record
	CurrentDate *int64 // nil when the server did not report it
}

// Latest returns the newest record. The API lists homeworks newest-last.
func (r *Response) Latest() (Record, bool) {
	if len(r.Homeworks) == 0 {
		return nil, false
	}
	return r.Homeworks[len(r.Homeworks)-1], true
}

// Validate checks the payload structure and returns a typed view of it.
// A current_date that is present but not an integer fails validation.
func Validate(raw json.RawMessage) (*Response, error) {
	if !isObject(raw) {
		return nil, &ShapeError{Reason: "response is not a JSON object"}
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &ShapeError{Reason: "response is not a JSON object"}
	}

	rawHomeworks, ok := top[keyHomeworks]
	if !ok {
		return nil, &ShapeError{Reason: `key "homeworks" is missing`}
	}
	if !isArray(rawHomeworks) {
		return nil, &ShapeError{Reason: `key "homeworks" is not a list`}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawHomeworks, &items); err != nil {
		return nil, &ShapeError{Reason: `key "homeworks" is not a list`}
	}

	resp := &Response{Homeworks: make([]Record, 0, len(items))}
	for i, item := range items {
		if !isObject(item) {
			return nil, &ShapeError{Reason: fmt.Sprintf("homework record #%d is not an object", i)}
		}
		var rec Record
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, &ShapeError{Reason: fmt.Sprintf("homework record #%d is not an object", i)}
		}
		resp.Homeworks = append(resp.Homeworks, rec)
	}

	if rawDate, ok := top[keyCurrentDate]; ok && !isNull(rawDate) {
		var ts int64
		if err := json.Unmarshal(rawDate, &ts); err != nil {
			return nil, &ShapeError{Reason: `key "current_date" is not an integer`}
		}
		resp.CurrentDate = &ts
	}

	return resp, nil
}

func firstByte(raw []byte) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isObject(raw []byte) bool { return firstByte(raw) == '{' }
func isArray(raw []byte) bool  { return firstByte(raw) == '[' }
func isNull(raw []byte) bool   { return bytes.Equal(bytes.TrimSpace(raw), []byte("null")) }
