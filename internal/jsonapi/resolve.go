package jsonapi

// Lookup maps an included resource to its attributes. It is built once per payload
// and must not outlive it.
type Lookup map[Ref]Attributes

// BuildLookup indexes included resources in a single pass. On duplicate keys the
// first entry wins.
func BuildLookup(included []Resource) Lookup {
	lookup := make(Lookup, len(included))
	for _, res := range included {
		if _, seen := lookup[res.Ref()]; seen {
			continue
		}
		lookup[res.Ref()] = res.Attributes
	}
	return lookup
}

// Resolve returns the attributes for ref, or the Unknown sentinel on a miss.
func (l Lookup) Resolve(ref Ref) Attributes {
	if attrs, ok := l[ref]; ok {
		return attrs
	}
	return Unknown(ref)
}

// Record is a primary resource whose relationships are resolved against the
// included table of its own payload.
type Record struct {
	Resource
	lookup Lookup
}

// Resolve pairs every primary resource with the document's included table.
func (d *Document) Resolve() []Record {
	lookup := BuildLookup(d.Included)
	records := make([]Record, 0, len(d.Data))
	for _, res := range d.Data {
		records = append(records, Record{Resource: res, lookup: lookup})
	}
	return records
}

// RelID returns the id of the first target of a relationship, resolved or not.
func (r Record) RelID(name string) (string, bool) {
	refs := r.Relationships[name]
	if len(refs) == 0 {
		return "", false
	}
	return refs[0].ID, true
}

// Rel inlines the first target of a to-one relationship. A missing relationship,
// null linkage, or a target absent from included all yield Unknown.
func (r Record) Rel(name string) Attributes {
	refs := r.Relationships[name]
	if len(refs) == 0 {
		return Unknown(Ref{})
	}
	return r.lookup.Resolve(refs[0])
}

// RelList inlines every target of a to-many relationship, keeping Unknown entries
// in place for misses.
func (r Record) RelList(name string) []Attributes {
	refs := r.Relationships[name]
	out := make([]Attributes, 0, len(refs))
	for _, ref := range refs {
		out = append(out, r.lookup.Resolve(ref))
	}
	return out
}

// Unresolved counts references through the named relationships that have no target
// in their payload's included table. Relationships the caller never inlines are not
// counted.
func Unresolved(records []Record, names ...string) int {
	n := 0
	for _, rec := range records {
		for _, name := range names {
			for _, ref := range rec.Relationships[name] {
				if _, ok := rec.lookup[ref]; !ok {
					n++
				}
			}
		}
	}
	return n
}
