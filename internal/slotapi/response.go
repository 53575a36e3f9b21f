// Package slotapi decodes responses of the remote slot service. Values travel
// as JSON-encoded strings inside a {"result": ...} envelope, sometimes quoted
// more than once by intermediate layers.
package slotapi

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// maxUnquote bounds how many layers of string quoting are peeled off.
const maxUnquote = 4

// ExtractResult returns the payload stored under "result". Bodies without an
// envelope are returned as-is. When the result is a string holding a JSON
// document, the decoded document is returned instead of the string.
func ExtractResult(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil || envelope.Result == nil {
		return unwrapString(trimmed), nil
	}
	return unwrapString(envelope.Result), nil
}

// unwrapString peels JSON string layers until a non-string JSON document
// appears. Plain strings are returned unchanged.
func unwrapString(raw []byte) []byte {
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return append([]byte(nil), raw...)
	}
	decoded := asString
	for i := 0; i < maxUnquote; i++ {
		unquoted, err := strconv.Unquote(decoded)
		if err != nil {
			break
		}
		decoded = unquoted
	}
	var inner json.RawMessage
	if err := json.Unmarshal([]byte(decoded), &inner); err == nil {
		return append([]byte(nil), inner...)
	}
	return append([]byte(nil), raw...)
}

// DecodeResult decodes the payload obtained via ExtractResult into out. An
// empty body decodes as JSON null.
func DecodeResult(body []byte, out any) error {
	payload, err := ExtractResult(body)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		payload = []byte("null")
	}
	return json.Unmarshal(payload, out)
}

// IsNull reports whether payload is empty or the JSON null literal.
func IsNull(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
