package util

import (
	"fmt"
	"strings"
	"time"
)

// Value is the result of a nested lookup. A missing or falsy value is absent.
type Value struct {
	v  any
	ok bool
}

// Lookup walks nested maps along keys. Missing keys, non-map intermediates
// and falsy leaves (nil, false, zero numbers, empty strings, maps and slices)
// all yield an absent Value. Calling it without keys is a programming error.
func Lookup(tree any, keys ...string) Value {
	if len(keys) == 0 {
		panic("util.Lookup: no keys given")
	}
	cur := tree
	for _, key := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return Value{}
		}
		next, ok := m[key]
		if !ok || isFalsy(next) {
			return Value{}
		}
		cur = next
	}
	return Value{v: cur, ok: true}
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case []map[string]any:
		return len(t) == 0
	}
	return false
}

func (v Value) Present() bool { return v.ok }

func (v Value) Or(def any) any {
	if !v.ok {
		return def
	}
	return v.v
}

// String renders scalars as text. Maps and lists are not strings.
func (v Value) String(def string) string {
	if !v.ok {
		return def
	}
	switch t := v.v.(type) {
	case string:
		return t
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return def
}

// Strings returns the non-empty string items of a list, or a single string
// as a one-element list.
func (v Value) Strings() []string {
	if !v.ok {
		return nil
	}
	switch t := v.v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (v Value) Slice() []any {
	if !v.ok {
		return nil
	}
	switch t := v.v.(type) {
	case []any:
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out
	}
	return nil
}

func (v Value) Map() map[string]any {
	if !v.ok {
		return nil
	}
	m, _ := v.v.(map[string]any)
	return m
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses the value as an ISO-8601 timestamp. TOML documents decode
// datetimes natively, those are passed through.
func (v Value) Time() (time.Time, bool) {
	if !v.ok {
		return time.Time{}, false
	}
	switch t := v.v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		return ParseTime(t)
	}
	return time.Time{}, false
}

func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}
