package registry

import (
	"github.com/dreamware/librarian/internal/protocol"
	"github.com/dreamware/librarian/internal/resource"
)

// Snapshot is an immutable, lock-free copy of registry state, handed to the
// Router so that a routing decision is a pure function of (request,
// snapshot) per spec.md §4.3 / §8 ("Routing determinism").
type Snapshot struct {
	endpoints map[string]EndpointRecord
	groups    map[string][]string
}

// Snapshot captures the current registry state under a read lock and
// returns an immutable copy safe to use without further locking.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoints := make(map[string]EndpointRecord, len(r.endpoints))
	for k, v := range r.endpoints {
		endpoints[k] = *v
	}
	groups := make(map[string][]string, len(r.groups))
	for g, members := range r.groups {
		groups[g] = append([]string(nil), members...)
	}
	return Snapshot{endpoints: endpoints, groups: groups}
}

// KeysSupporting returns every endpoint key whose SupportedTypes intersects
// types, across all groups (used for unscoped Search routing).
func (s Snapshot) KeysSupporting(types []resource.Type) []string {
	var out []string
	for key, rec := range s.endpoints {
		for _, t := range types {
			if rec.supports(t) {
				out = append(out, key)
				break
			}
		}
	}
	return out
}

// GroupMembersSupporting returns the subset of groups[groupID] whose records
// support the given type.
func (s Snapshot) GroupMembersSupporting(t resource.Type, groupID string) []string {
	var out []string
	for _, key := range s.groups[groupID] {
		if rec, ok := s.endpoints[key]; ok && rec.supports(t) {
			out = append(out, key)
		}
	}
	return out
}

// GroupMembersSupportingDynamic returns the subset of groups[groupID] whose
// records advertise the given dynamic transform (matching both Name and
// FromType).
func (s Snapshot) GroupMembersSupportingDynamic(dtID protocol.DynamicTransformID, groupID string) []string {
	var out []string
	for _, key := range s.groups[groupID] {
		if rec, ok := s.endpoints[key]; ok && rec.supportsDynamic(dtID) {
			out = append(out, key)
		}
	}
	return out
}

// GroupIDOf returns the group ID of the endpoint named by resourceID, or
// ErrUnknownResource if it isn't present in this snapshot.
func (s Snapshot) GroupIDOf(resourceID string) (string, error) {
	rec, ok := s.endpoints[resourceID]
	if !ok {
		return "", ErrUnknownResource
	}
	return rec.GroupID, nil
}

// Exists reports whether key names a registered endpoint in this snapshot.
func (s Snapshot) Exists(key string) bool {
	_, ok := s.endpoints[key]
	return ok
}

// Addr returns the dial address for key, or "" if unregistered.
func (s Snapshot) Addr(key string) string {
	rec, ok := s.endpoints[key]
	if !ok {
		return ""
	}
	return rec.Addr()
}

// UnionSupportedTypes reports whether any endpoint in the snapshot advertises
// t. Informational only — spec.md §9 notes this is never used for admission
// control, since routing to an empty target set already yields the
// "no library support" error.
func (s Snapshot) UnionSupportedTypes(t resource.Type) bool {
	for _, rec := range s.endpoints {
		if rec.supports(t) {
			return true
		}
	}
	return false
}

// UnionDynamicTransforms reports whether any endpoint advertises dtID.
// Informational only, same rationale as UnionSupportedTypes.
func (s Snapshot) UnionDynamicTransforms(dtID protocol.DynamicTransformID) bool {
	for _, rec := range s.endpoints {
		if rec.supportsDynamic(dtID) {
			return true
		}
	}
	return false
}
