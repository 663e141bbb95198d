package jsonapi

import (
	"math"

	"github.com/tidwall/gjson"

	"tracker.redline.org/internal/utils"
)

// Attributes is a read-only view over one resource's attribute object. Every getter
// reports absence for a missing key or a value of the wrong JSON kind.
//
// The Unknown value stands for a relationship target that could not be resolved; it
// still carries the referenced Ref (when there was one) and reads as empty.
type Attributes struct {
	ref     Ref
	raw     gjson.Result
	rels    gjson.Result
	unknown bool
}

// Unknown returns the sentinel for an unresolved reference to ref.
func Unknown(ref Ref) Attributes {
	return Attributes{ref: ref, unknown: true}
}

// IsUnknown reports whether these attributes are the unresolved sentinel.
func (a Attributes) IsUnknown() bool { return a.unknown }

// Ref is the resource these attributes belong to, or the reference that failed to resolve.
func (a Attributes) Ref() Ref { return a.ref }

func (a Attributes) get(key string) gjson.Result {
	if a.unknown || !a.raw.IsObject() {
		return gjson.Result{}
	}
	return a.raw.Get(key)
}

// Has reports whether key is present with a non-null value.
func (a Attributes) Has(key string) bool {
	v := a.get(key)
	return v.Exists() && v.Type != gjson.Null
}

func (a Attributes) String(key string) (string, bool) {
	v := a.get(key)
	if v.Type != gjson.String {
		return "", false
	}
	return v.Str, true
}

// StringOr returns the string attribute, or fallback when it is absent or empty.
func (a Attributes) StringOr(key, fallback string) string {
	if s, ok := a.String(key); ok && s != "" {
		return s
	}
	return fallback
}

// Int reads an integral number. 1.5 is absent, 2.0 is 2.
func (a Attributes) Int(key string) (int, bool) {
	v := a.get(key)
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		return 0, false
	}
	return int(v.Num), true
}

func (a Attributes) Float(key string) (float64, bool) {
	v := a.get(key)
	if v.Type != gjson.Number {
		return 0, false
	}
	return v.Num, true
}

func (a Attributes) Bool(key string) (bool, bool) {
	v := a.get(key)
	if v.Type != gjson.True && v.Type != gjson.False {
		return false, false
	}
	return v.Bool(), true
}

// Instant reads a timestamp attribute. Non-string values are absent.
func (a Attributes) Instant(key string) utils.Instant {
	s, ok := a.String(key)
	if !ok {
		return utils.Instant{}
	}
	return utils.ParseInstant(s)
}

// Object returns a nested object attribute as its own view.
func (a Attributes) Object(key string) (Attributes, bool) {
	v := a.get(key)
	if !v.IsObject() {
		return Attributes{}, false
	}
	return Attributes{ref: a.ref, raw: v}, true
}

// List returns the object elements of an array attribute; other elements are dropped.
func (a Attributes) List(key string) []Attributes {
	out := []Attributes{}
	v := a.get(key)
	if !v.IsArray() {
		return out
	}
	v.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() {
			out = append(out, Attributes{ref: a.ref, raw: item})
		}
		return true
	})
	return out
}

// Strings returns the string elements of an array attribute.
func (a Attributes) Strings(key string) []string {
	out := []string{}
	v := a.get(key)
	if !v.IsArray() {
		return out
	}
	v.ForEach(func(_, item gjson.Result) bool {
		if item.Type == gjson.String {
			out = append(out, item.Str)
		}
		return true
	})
	return out
}

// RefID returns the id of a to-one relationship declared on this resource. Included
// resources keep theirs, so a stop's parent_station can be read without another lookup.
func (a Attributes) RefID(name string) (string, bool) {
	if a.unknown || !a.rels.IsObject() {
		return "", false
	}
	id := a.rels.Get(name).Get("data").Get("id")
	if id.Type != gjson.String || id.Str == "" {
		return "", false
	}
	return id.Str, true
}
