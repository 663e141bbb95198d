package jsonapi

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMalformedPayload is matched by every *PayloadError.
var ErrMalformedPayload = errors.New("malformed JSON:API payload")

// PayloadError reports a payload that is structurally unusable: not a JSON object, a
// data or included member of the wrong kind, or an error document.
type PayloadError struct {
	Reason string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedPayload.Error(), e.Reason)
}

func (e *PayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

// Ref identifies a resource inside one payload.
type Ref struct {
	Type string
	ID   string
}

func (r Ref) String() string {
	return r.Type + "/" + r.ID
}

// Resource is one member of data or included, as it appeared in the payload.
type Resource struct {
	Type          string
	ID            string
	Attributes    Attributes
	Relationships map[string][]Ref
}

// Ref returns the (type, id) key of the resource.
func (r Resource) Ref() Ref {
	return Ref{Type: r.Type, ID: r.ID}
}

// Document is a parsed JSON:API payload.
type Document struct {
	Data     []Resource
	Included []Resource
	// Skipped counts entries dropped for lacking a type or id.
	Skipped int
}

// Parse reads a JSON:API payload. Only structural problems are errors; individual
// resources that cannot be identified are skipped and counted.
func Parse(payload []byte) (*Document, error) {
	if !gjson.ValidBytes(payload) {
		return nil, &PayloadError{Reason: "invalid JSON"}
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return nil, &PayloadError{Reason: "top level is not an object"}
	}

	data := root.Get("data")
	if !data.Exists() {
		if errs := root.Get("errors"); errs.Exists() {
			return nil, &PayloadError{Reason: "error document: " + describeErrors(errs)}
		}
	}

	doc := &Document{}
	var err error
	if doc.Data, err = doc.collect("data", data, true); err != nil {
		return nil, err
	}
	if doc.Included, err = doc.collect("included", root.Get("included"), false); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) collect(member string, v gjson.Result, allowSingle bool) ([]Resource, error) {
	resources := []Resource{}
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return resources, nil
	case v.IsArray():
		v.ForEach(func(_, entry gjson.Result) bool {
			if res, ok := parseResource(entry); ok {
				resources = append(resources, res)
			} else {
				d.Skipped++
			}
			return true
		})
		return resources, nil
	case v.IsObject() && allowSingle:
		if res, ok := parseResource(v); ok {
			resources = append(resources, res)
		} else {
			d.Skipped++
		}
		return resources, nil
	default:
		return nil, &PayloadError{Reason: fmt.Sprintf("%s is a %s", member, v.Type)}
	}
}

func parseResource(entry gjson.Result) (Resource, bool) {
	if !entry.IsObject() {
		return Resource{}, false
	}
	typ, id := entry.Get("type"), entry.Get("id")
	if typ.Type != gjson.String || typ.Str == "" || id.Type != gjson.String || id.Str == "" {
		return Resource{}, false
	}
	rels := entry.Get("relationships")
	return Resource{
		Type:          typ.Str,
		ID:            id.Str,
		Attributes:    Attributes{ref: Ref{Type: typ.Str, ID: id.Str}, raw: entry.Get("attributes"), rels: rels},
		Relationships: parseRelationships(rels),
	}, true
}

// parseRelationships flattens to-one and to-many linkage. A relationship whose data is
// null or missing maps to an empty list.
func parseRelationships(rels gjson.Result) map[string][]Ref {
	out := map[string][]Ref{}
	if !rels.IsObject() {
		return out
	}
	rels.ForEach(func(name, rel gjson.Result) bool {
		refs := []Ref{}
		linkage := rel.Get("data")
		switch {
		case linkage.IsArray():
			linkage.ForEach(func(_, item gjson.Result) bool {
				if ref, ok := parseRef(item); ok {
					refs = append(refs, ref)
				}
				return true
			})
		case linkage.IsObject():
			if ref, ok := parseRef(linkage); ok {
				refs = append(refs, ref)
			}
		}
		out[name.String()] = refs
		return true
	})
	return out
}

func parseRef(v gjson.Result) (Ref, bool) {
	typ, id := v.Get("type"), v.Get("id")
	if typ.Type != gjson.String || id.Type != gjson.String || typ.Str == "" || id.Str == "" {
		return Ref{}, false
	}
	return Ref{Type: typ.Str, ID: id.Str}, true
}

func describeErrors(errs gjson.Result) string {
	first := errs
	if errs.IsArray() {
		first = errs.Get("0")
	}
	for _, key := range []string{"detail", "title", "code", "status"} {
		if v := first.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return "unspecified error"
}
