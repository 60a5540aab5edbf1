package tmdb

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// requiredField is a JSON path a response must carry
type requiredField struct {
	path  string
	array bool
}

func (k Kind) requiredFields() []requiredField {
	switch {
	case k.Paged():
		return []requiredField{{path: "results", array: true}}
	case k == KindDetail:
		return []requiredField{{path: "id"}}
	case k == KindCredits:
		return []requiredField{{path: "cast", array: true}}
	case k == KindImages:
		return []requiredField{{path: "posters", array: true}}
	}
	return nil
}

// validateShape checks a raw body before it is decoded so that an error
// payload or an unrelated document is never mistaken for an empty result
func validateShape(kind Kind, body []byte) error {
	if !gjson.ValidBytes(body) {
		return errors.New("response is not valid JSON")
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return errors.New("response is not a JSON object")
	}

	// TMDB error envelopes carry success=false alongside status_message
	if success := doc.Get("success"); success.Exists() && !success.Bool() {
		return fmt.Errorf("API reported failure: %s", doc.Get("status_message").String())
	}

	for _, field := range kind.requiredFields() {
		value := doc.Get(field.path)
		if !value.Exists() {
			return fmt.Errorf("%s response is missing %q", kind, field.path)
		}
		if field.array && !value.IsArray() {
			return fmt.Errorf("%s response field %q is not an array", kind, field.path)
		}
	}

	return nil
}
