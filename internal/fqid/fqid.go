// Package fqid implements FullQualifiedID, the immutable hierarchical path
// that addresses a stepper, a step group, one iteration of a group, or a step
// within a single run.
//
// The canonical string form joins segments with "/" and writes each segment
// as type:id or type:id#secondary, for example:
//
//	stepper:deploy/group:flash/iteration:2/step:copy#boot
//
// Two IDs are equal when their canonical strings are equal.
package fqid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Segment types.
const (
	TypeStepper   = "stepper"
	TypeGroup     = "group"
	TypeIteration = "iteration"
	TypeStep      = "step"
)

// ErrMalformed is returned by Parse for strings that are not a canonical ID.
var ErrMalformed = errors.New("malformed full qualified id")

// FullQualifiedID is one segment plus a link to its parent. Values are never
// mutated after construction, so they can be shared freely across goroutines.
type FullQualifiedID struct {
	typ       string
	id        string
	secondary string
	parent    *FullQualifiedID
	str       string
}

// Root creates a parentless ID.
func Root(typ, id, secondary string) *FullQualifiedID {
	return newID(typ, id, secondary, nil)
}

// Child returns a new ID with the given segment appended to f.
func (f *FullQualifiedID) Child(typ, id, secondary string) *FullQualifiedID {
	return newID(typ, id, secondary, f)
}

func newID(typ, id, secondary string, parent *FullQualifiedID) *FullQualifiedID {
	f := &FullQualifiedID{typ: typ, id: id, secondary: secondary, parent: parent}
	seg := escape(typ) + ":" + escape(id)
	if secondary != "" {
		seg += "#" + escape(secondary)
	}
	if parent != nil {
		f.str = parent.str + "/" + seg
	} else {
		f.str = seg
	}
	return f
}

// Parent returns the parent ID or nil for a root.
func (f *FullQualifiedID) Parent() *FullQualifiedID { return f.parent }

// Type returns the segment type.
func (f *FullQualifiedID) Type() string { return f.typ }

// ID returns the primary id of the segment.
func (f *FullQualifiedID) ID() string { return f.id }

// SecondaryID returns the secondary id of the segment, possibly empty.
func (f *FullQualifiedID) SecondaryID() string { return f.secondary }

// Depth returns the number of segments from the root to f, inclusive.
func (f *FullQualifiedID) Depth() int {
	n := 0
	for cur := f; cur != nil; cur = cur.parent {
		n++
	}
	return n
}

// Iteration returns the index of the nearest enclosing iteration segment,
// or -1 when f is not inside an iterated group.
func (f *FullQualifiedID) Iteration() int {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.typ != TypeIteration {
			continue
		}
		n, err := strconv.Atoi(cur.id)
		if err != nil {
			return -1
		}
		return n
	}
	return -1
}

// Ancestor returns the nearest ID of the given type, starting at f itself.
func (f *FullQualifiedID) Ancestor(typ string) *FullQualifiedID {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.typ == typ {
			return cur
		}
	}
	return nil
}

// String returns the canonical form.
func (f *FullQualifiedID) String() string {
	if f == nil {
		return ""
	}
	return f.str
}

// Equal reports structural equality.
func (f *FullQualifiedID) Equal(other *FullQualifiedID) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.str == other.str
}

// Hash returns a 64-bit xxhash of the canonical form. Equal IDs hash equal.
func (f *FullQualifiedID) Hash() uint64 {
	return xxhash.Sum64String(f.String())
}

// Parse reconstructs an ID from its canonical form.
func Parse(s string) (*FullQualifiedID, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrMalformed)
	}
	var cur *FullQualifiedID
	for _, seg := range strings.Split(s, "/") {
		typ, rest, ok := strings.Cut(seg, ":")
		if !ok || typ == "" {
			return nil, fmt.Errorf("%w: segment %q has no type", ErrMalformed, seg)
		}
		id, secondary, _ := strings.Cut(rest, "#")
		cur = newID(unescape(typ), unescape(id), unescape(secondary), cur)
	}
	return cur, nil
}

var (
	escaper   = strings.NewReplacer("%", "%25", "/", "%2F", ":", "%3A", "#", "%23")
	unescaper = strings.NewReplacer("%2F", "/", "%3A", ":", "%23", "#", "%25", "%")
)

func escape(s string) string   { return escaper.Replace(s) }
func unescape(s string) string { return unescaper.Replace(s) }
