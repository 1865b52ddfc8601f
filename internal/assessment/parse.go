package assessment

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"selectra/interview/internal/utils"
)

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// decodeJSONReply decodes a model reply that may be wrapped in code fences
// or surrounded by prose.
func decodeJSONReply(text string, out interface{}) error {
	cleaned := utils.StripFences(text)
	if cleaned == "" {
		return ErrUnparsableReply
	}

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	match := jsonObjectPattern.FindString(cleaned)
	if match == "" {
		return ErrUnparsableReply
	}
	if err := json.Unmarshal([]byte(match), out); err != nil {
		return ErrUnparsableReply
	}
	return nil
}

// flexibleNumber accepts 7, 7.5 and "7" alike.
type flexibleNumber struct {
	Value float64
	Valid bool
}

func (n *flexibleNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := strings.Trim(string(data), `"`)
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		// an unreadable score is treated as missing
		return nil
	}
	n.Value = v
	n.Valid = true
	return nil
}
