// Package resource defines the closed resource-type enumeration and the
// containment relation that constrains which contents-transforms are valid
// between which types.
//
// The maps in this package are immutable, process-wide data: there is no
// mutation path, by design. Every predicate here is a pure function.
package resource

import "fmt"

// Type is one of the eight closed resource-type tags the Librarian knows
// about. Type is a plain string type, so a conversion or JSON decoding can
// still produce a value outside the eight constants below; ParseType is the
// checked conversion and rejects unknown names.
type Type string

const (
	Collection   Type = "Collection"
	Page         Type = "Page"
	Picture      Type = "Picture"
	Video        Type = "Video"
	Audio        Type = "Audio"
	Person       Type = "Person"
	Location     Type = "Location"
	Organization Type = "Organization"
)

// All lists the eight resource types in a fixed order, useful for iteration
// and for deterministic test fixtures.
var All = []Type{Collection, Page, Picture, Video, Audio, Person, Location, Organization}

// ErrInvalidType is returned by ParseType when given a string that does not
// name one of the eight resource types. Treated as a programmer error at the
// call site (spec.md §7, InvalidTypeString) rather than a wire-level failure.
type ErrInvalidType struct{ Input string }

func (e ErrInvalidType) Error() string {
	return fmt.Sprintf("resource: invalid type string %q", e.Input)
}

// ParseType converts a type name into a Type, or returns ErrInvalidType if
// the name is not one of the eight recognized resource types.
func ParseType(s string) (Type, error) {
	for _, t := range All {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrInvalidType{Input: s}
}

var containsMap = map[Type][]Type{
	Collection: {Page},
	Page:       {Picture, Video, Audio, Person, Location, Organization},
	Picture:    {Person, Location, Organization},
	Video:      {Person, Location, Organization},
	Audio:      {Person, Location, Organization},
}

var containedByMap = map[Type][]Type{
	Page:         {Collection},
	Picture:      {Page},
	Video:        {Page},
	Audio:        {Page},
	Person:       {Page, Picture, Video, Audio},
	Location:     {Page, Picture, Video, Audio},
	Organization: {Page, Picture, Video, Audio},
}

// Contains reports whether t1 directly contains resources of type t2, per
// the fixed containment relation in spec.md §3.
func Contains(t1, t2 Type) bool {
	for _, t := range containsMap[t1] {
		if t == t2 {
			return true
		}
	}
	return false
}

// ContainersOf returns the set of types that can contain a resource of type
// t, or nil if nothing contains it (e.g. Collection has no container).
func ContainersOf(t Type) []Type {
	return containedByMap[t]
}

// ValidateContents reports whether a ContentsTransform from "from" to "to"
// is well-formed, i.e. whether from directly contains to. Client helpers use
// this to reject ill-formed requests before they ever reach the wire.
func ValidateContents(from, to Type) bool {
	return Contains(from, to)
}
