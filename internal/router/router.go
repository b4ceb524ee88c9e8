// Package router implements the capability-based routing layer (spec.md
// §4.3): a pure function from (request, registry snapshot) to the set of
// endpoint keys that should receive it. Router never performs I/O and never
// touches the live Registry's lock — it only ever sees an already-captured
// registry.Snapshot, which is what makes routing a deterministic, testable
// pure function (spec.md §8, "Routing determinism").
package router

import (
	"errors"

	"github.com/dreamware/librarian/internal/protocol"
	"github.com/dreamware/librarian/internal/registry"
	"github.com/dreamware/librarian/internal/resource"
)

// ErrUnknownResource is returned by RouteTransform when req.ID's resourceId
// isn't in the snapshot. The broker's transform handler then dispatches with
// no targets, so the client gets the standard no-support SearchResponse
// rather than a transport error. RouteLookup signals the same case with an
// empty target set instead.
var ErrUnknownResource = registry.ErrUnknownResource

// RouteSearch returns every endpoint key supporting at least one of the
// requested types, across all groups — Search is unscoped (spec.md §4.3).
func RouteSearch(req protocol.SearchRequest, snap registry.Snapshot) []string {
	return snap.KeysSupporting(req.Types)
}

// RouteTransform returns the group-scoped target set for one of the nine
// transform kinds, per the table in spec.md §4.3. All non-search requests
// are confined to the group owning req.ID's resource, for consistency.
func RouteTransform(req protocol.TransformRequest, snap registry.Snapshot) ([]string, error) {
	groupID, err := groupOf(req.ID, snap)
	if err != nil {
		return nil, err
	}

	switch req.Kind {
	case protocol.ContainerTransform, protocol.OverlapsTransform,
		protocol.OccurAsObj, protocol.OccurAsSubj,
		protocol.OccurHasObj, protocol.OccurHasSubj:
		return snap.GroupMembersSupporting(req.FromType, groupID), nil
	case protocol.ContentsTransform:
		return snap.GroupMembersSupporting(req.ToType, groupID), nil
	case protocol.NearbyLocations:
		return snap.GroupMembersSupporting(resource.Location, groupID), nil
	case protocol.DynamicTransform:
		return snap.GroupMembersSupportingDynamic(req.TransformID, groupID), nil
	default:
		return nil, errors.New("router: unknown transform kind " + string(req.Kind))
	}
}

// RouteLookup returns the singleton target set for a typed lookup: exactly
// the endpoint named by id.ResourceID, or empty if it's unregistered (the
// Dispatcher is responsible for turning that into an UnknownResource stub).
func RouteLookup(id protocol.AccessIdentifier, snap registry.Snapshot) []string {
	if !snap.Exists(id.ResourceID) {
		return nil
	}
	return []string{id.ResourceID}
}

func groupOf(id protocol.AccessIdentifier, snap registry.Snapshot) (string, error) {
	// Snapshot.GroupIDOf reports ErrUnknownResource for an unregistered
	// resourceId.
	return snap.GroupIDOf(id.ResourceID)
}
