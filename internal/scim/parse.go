package scim

import (
	"encoding/json"
	"fmt"

	"github.com/valyala/fastjson"
)

// SniffEventKind pulls the "event" field out of a webhook body without
// decoding the whole document. The receiver uses it to label metrics and
// reject junk before the full parse.
func SniffEventKind(body []byte) string {
	return fastjson.GetString(body, "event")
}

// ParseEvent decodes a webhook body into an Event. The body must be a
// JSON object; anything else is a parse error. A missing or empty "event"
// field is reported here so handlers don't have to special-case it.
func ParseEvent(body []byte) (*Event, error) {
	if v, err := fastjson.ParseBytes(body); err != nil {
		return nil, fmt.Errorf("parsing event body: %w", err)
	} else if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("event body is %s, want object", v.Type())
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	if ev.Event == "" {
		return nil, fmt.Errorf("event kind missing")
	}
	return &ev, nil
}

// UserID picks the identity key for a raw SCIM document: the first
// non-empty of id, externalId, userName.
func UserID(raw map[string]any) string {
	for _, key := range []string{"id", "externalId", "userName"} {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// UserName returns the document's userName when present.
func UserName(raw map[string]any) string {
	s, _ := raw["userName"].(string)
	return s
}
