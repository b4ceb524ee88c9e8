// Package registry tracks connected endpoints, their capabilities, group
// membership, and key allocation for the Librarian broker (spec.md §4.2).
//
// Mutation is single-writer: every exported method that changes state takes
// the registry's exclusive lock and applies its change atomically. The
// Router reads through Snapshot, a consistent, lock-free, immutable copy of
// the registry state; the Dispatcher (Lookup) and the stats handler (Stats)
// take the read lock only long enough to copy what they need. No lock is
// held during the network calls that follow a routing decision,
// matching the teacher's ShardRegistry discipline of returning copies and
// never holding a lock across external calls.
package registry

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/dreamware/librarian/internal/protocol"
	"github.com/dreamware/librarian/internal/resource"
)

// ErrKeyCollision is returned by Connect when a RequestedKey is already in
// use by a different (hostname, port, groupId) triple (spec.md §7).
var ErrKeyCollision = errors.New("registry: requested key is in use by a different endpoint")

// ErrUnknownResource is returned by GroupIDOf (and Snapshot.GroupIDOf) when
// the resourceId isn't registered.
var ErrUnknownResource = errors.New("registry: unknown resource id")

const keyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const keyLength = 8

// EndpointRecord is the broker-side record of one connected endpoint.
type EndpointRecord struct {
	Key               string
	GroupID           string
	Host              string
	Port              int
	SupportedTypes    []resource.Type
	DynamicTransforms []protocol.DynamicTransformID
}

// Addr returns the endpoint's dial address, e.g. "host:8082".
func (e EndpointRecord) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

func (e EndpointRecord) supports(t resource.Type) bool {
	return slices.Contains(e.SupportedTypes, t)
}

func (e EndpointRecord) supportsDynamic(id protocol.DynamicTransformID) bool {
	return slices.ContainsFunc(e.DynamicTransforms, func(dt protocol.DynamicTransformID) bool {
		return dt.Equal(id)
	})
}

// Registry is the broker's mutable endpoint registry (spec.md's BrokerState).
type Registry struct {
	mu                     sync.RWMutex
	endpoints              map[string]*EndpointRecord
	groups                 map[string][]string
	unionSupportedTypes    map[resource.Type]int
	unionDynamicTransforms map[protocol.DynamicTransformID]int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		endpoints:              make(map[string]*EndpointRecord),
		groups:                 make(map[string][]string),
		unionSupportedTypes:    make(map[resource.Type]int),
		unionDynamicTransforms: make(map[protocol.DynamicTransformID]int),
	}
}

// Connect admits a new endpoint or idempotently reconfirms an existing one,
// implementing the key- and group-allocation rules of spec.md §4.2.
func (r *Registry) Connect(req protocol.ConnectRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, err := r.allocateKey(req)
	if err != nil {
		return "", err
	}

	if existing, ok := r.endpoints[key]; ok {
		// Idempotent reconnect: same key already fully set up. Only capabilities
		// this endpoint hasn't already advertised should touch the refcounted
		// union sets, or Disconnect's single decrement per rec.SupportedTypes
		// entry would leave the union inflated forever.
		r.unionIn(diffTypes(existing.SupportedTypes, req.SupportedTypes), diffTransforms(existing.DynamicTransforms, req.DynamicTransforms))
		existing.SupportedTypes = unionTypes(existing.SupportedTypes, req.SupportedTypes)
		existing.DynamicTransforms = unionTransforms(existing.DynamicTransforms, req.DynamicTransforms)
		return key, nil
	}

	groupID := r.allocateGroup(req.GroupID, key)

	r.endpoints[key] = &EndpointRecord{
		Key:               key,
		GroupID:           groupID,
		Host:              req.Hostname,
		Port:              req.Port,
		SupportedTypes:    append([]resource.Type(nil), req.SupportedTypes...),
		DynamicTransforms: append([]protocol.DynamicTransformID(nil), req.DynamicTransforms...),
	}
	r.unionIn(req.SupportedTypes, req.DynamicTransforms)

	return key, nil
}

// allocateKey implements spec.md's key-allocation rule. Caller must hold r.mu.
func (r *Registry) allocateKey(req protocol.ConnectRequest) (string, error) {
	if req.RequestedKey == "" {
		return r.freshKey(), nil
	}

	existing, ok := r.endpoints[req.RequestedKey]
	if !ok {
		return req.RequestedKey, nil
	}

	if existing.Host == req.Hostname && existing.Port == req.Port && existing.GroupID == req.GroupID {
		return req.RequestedKey, nil
	}
	return "", ErrKeyCollision
}

// allocateGroup implements spec.md's group-allocation rule. Caller must hold r.mu.
func (r *Registry) allocateGroup(requestedGroup, key string) string {
	if requestedGroup == "" {
		groupID := uuid.NewString()
		r.groups[groupID] = []string{key}
		return groupID
	}

	members, ok := r.groups[requestedGroup]
	if !ok {
		r.groups[requestedGroup] = []string{key}
		return requestedGroup
	}

	if slices.Contains(members, key) {
		return requestedGroup
	}
	r.groups[requestedGroup] = append(members, key)
	return requestedGroup
}

// unionIn merges newly-advertised capabilities into the broker-wide union
// sets, tracking reference counts so Disconnect can shrink them precisely.
// Caller must hold r.mu.
func (r *Registry) unionIn(types []resource.Type, transforms []protocol.DynamicTransformID) {
	for _, t := range types {
		r.unionSupportedTypes[t]++
	}
	for _, dt := range transforms {
		r.unionDynamicTransforms[dt]++
	}
}

// Disconnect removes an endpoint from the registry, shrinking the
// broker-wide union sets when it was the last supporter of a capability.
// Resolves the open question in spec.md §9 ("no deregistration").
func (r *Registry) Disconnect(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.endpoints[key]
	if !ok {
		return
	}
	delete(r.endpoints, key)

	if members, ok := r.groups[rec.GroupID]; ok {
		filtered := members[:0]
		for _, m := range members {
			if m != key {
				filtered = append(filtered, m)
			}
		}
		if len(filtered) == 0 {
			delete(r.groups, rec.GroupID)
		} else {
			r.groups[rec.GroupID] = filtered
		}
	}

	for _, t := range rec.SupportedTypes {
		r.unionSupportedTypes[t]--
		if r.unionSupportedTypes[t] <= 0 {
			delete(r.unionSupportedTypes, t)
		}
	}
	for _, dt := range rec.DynamicTransforms {
		r.unionDynamicTransforms[dt]--
		if r.unionDynamicTransforms[dt] <= 0 {
			delete(r.unionDynamicTransforms, dt)
		}
	}
}

// freshKey generates an unused 8-character [a-zA-Z0-9] key. Caller must hold
// r.mu (at least for reading r.endpoints to check collisions).
func (r *Registry) freshKey() string {
	for {
		b := make([]byte, keyLength)
		for i := range b {
			b[i] = keyAlphabet[rand.IntN(len(keyAlphabet))]
		}
		key := string(b)
		if _, taken := r.endpoints[key]; !taken {
			return key
		}
	}
}

func unionTypes(a, b []resource.Type) []resource.Type {
	out := append([]resource.Type(nil), a...)
	for _, t := range b {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func unionTransforms(a, b []protocol.DynamicTransformID) []protocol.DynamicTransformID {
	out := append([]protocol.DynamicTransformID(nil), a...)
	for _, dt := range b {
		found := slices.ContainsFunc(out, func(existing protocol.DynamicTransformID) bool {
			return existing.Equal(dt)
		})
		if !found {
			out = append(out, dt)
		}
	}
	return out
}

// diffTypes returns the entries of incoming not already present in existing.
func diffTypes(existing, incoming []resource.Type) []resource.Type {
	var added []resource.Type
	for _, t := range incoming {
		if !slices.Contains(existing, t) {
			added = append(added, t)
		}
	}
	return added
}

// diffTransforms returns the entries of incoming not already present in existing.
func diffTransforms(existing, incoming []protocol.DynamicTransformID) []protocol.DynamicTransformID {
	var added []protocol.DynamicTransformID
	for _, dt := range incoming {
		found := slices.ContainsFunc(existing, func(e protocol.DynamicTransformID) bool {
			return e.Equal(dt)
		})
		if !found {
			added = append(added, dt)
		}
	}
	return added
}

// GroupIDOf returns the group an endpoint belongs to, or ErrUnknownResource
// if the resourceId isn't registered.
func (r *Registry) GroupIDOf(id protocol.AccessIdentifier) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.endpoints[id.ResourceID]
	if !ok {
		return "", ErrUnknownResource
	}
	return rec.GroupID, nil
}

// Lookup returns a copy of the endpoint record for key, or (zero, false) if
// unregistered. Used by the Dispatcher to resolve a key to a dial address.
func (r *Registry) Lookup(key string) (EndpointRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.endpoints[key]
	if !ok {
		return EndpointRecord{}, false
	}
	return *rec, true
}

// Stats summarizes registry size for the broker's debug /stats endpoint.
type Stats struct {
	Endpoints int `json:"endpoints"`
	Groups    int `json:"groups"`
}

// Stats returns a snapshot of registry size.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Endpoints: len(r.endpoints), Groups: len(r.groups)}
}
