package humastar

import (
	"encoding/json"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
)

// Signals is the JSON object Datastar posts with every action.
type Signals map[string]any

// SignalsInput takes the raw request body of a Datastar action.
type SignalsInput struct {
	RawBody []byte
}

// Signals decodes the body. A malformed body is a 400.
func (in *SignalsInput) Signals() (Signals, error) {
	var s Signals
	if err := json.Unmarshal(in.RawBody, &s); err != nil {
		return nil, huma.Error400BadRequest("malformed signals: " + err.Error())
	}
	return s, nil
}

// String returns the string signal key, or "" when absent or not a string.
func (s Signals) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Bool returns the boolean signal key. def is returned when the page did not
// send it, so a form can post only the toggles that changed.
func (s Signals) Bool(key string, def bool) bool {
	v, ok := s[key].(bool)
	if !ok {
		return def
	}
	return v
}

// Decode unmarshals a nested signal into v.
func (s Signals) Decode(key string, v any) error {
	raw, ok := s[key]
	if !ok {
		return fmt.Errorf("signal %q missing", key)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("signal %q: %w", key, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("signal %q: %w", key, err)
	}
	return nil
}
