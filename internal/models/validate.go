package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/katastar/katastar/internal/errors"
)

// validate enforces the `validate` tags on parsed entities. A single shared
// instance is safe: Validator instances are concurrency-safe and cache struct
// metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs tag validation and maps failures into the structured
// invalid-response taxonomy, keyed by the offending field namespaces.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.Wrap(apierrors.KindInvalidResponse, err, nil)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return apierrors.Wrap(apierrors.KindInvalidResponse, err, map[string]interface{}{
		"reason": "validation_failed",
		"fields": strings.Join(fields, "; "),
	})
}

// parseAreaString converts a wire-format area (always a numeric string, never
// a JSON number) into square metres. Failure is a structured field error,
// never a silent zero.
func parseAreaString(path, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apierrors.InvalidField(path, raw, "area must be a numeric string")
	}
	if n < 0 {
		return 0, apierrors.InvalidField(path, raw, "area must be non-negative")
	}
	return n, nil
}

// captureExtra collects the wire fields not claimed by the typed struct.
// The upstream service adds undocumented fields without notice; they are
// preserved in an overflow bag instead of being rejected or dropped.
func captureExtra(data []byte, typed interface{}) map[string]json.RawMessage {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	for key := range knownJSONKeys(reflect.TypeOf(typed)) {
		delete(raw, key)
	}
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func knownJSONKeys(t reflect.Type) map[string]struct{} {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name != "" {
			keys[name] = struct{}{}
		}
	}
	return keys
}
