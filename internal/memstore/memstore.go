// Package memstore provides a minimal in-memory endpoint.DataStore, adapted
// from the teacher's storage.MemoryStore key-value design to the Librarian's
// typed resource graph. It exists to make the endpoint binary runnable and
// testable; spec.md §1 explicitly scopes ranking, persistence, and query
// semantics out of core.
package memstore

import (
	"context"
	"maps"
	"strings"
	"sync"

	"github.com/dreamware/librarian/internal/protocol"
	"github.com/dreamware/librarian/internal/resource"
)

// Object is one item held by the store: a typed, titled node with edges to
// related objects along each of the eight fixed transform relations. Dynamic
// transforms have no edge field; registered handlers compute their targets.
type Object struct {
	Identifier string
	Type       resource.Type
	Title      string
	Fields     map[string]any

	Container    string   // ContainerTransform target (parent)
	Contents     []string // ContentsTransform targets (children, by ToType)
	Overlaps     []string
	OccurAsObj   []string
	OccurAsSubj  []string
	OccurHasObj  []string
	OccurHasSubj []string
	Nearby       []string // NearbyLocations targets
}

// dynamicFunc computes a DynamicTransform's targets for one object.
type dynamicFunc func(obj Object) []string

// msgUnsupportedType is the DataStore-level "unsupported type" response
// (distinct from the broker's msgNoSupport, which fires when no endpoint at
// all advertises the type).
const msgUnsupportedType = "This endpoint does not serve the requested resource type(s)"

// Store is a thread-safe in-memory DataStore, mirroring the teacher's
// MemoryStore's copy-on-read discipline: callers never receive references
// into internal state.
type Store struct {
	mu        sync.RWMutex
	objects   map[string]Object
	dynamics  map[protocol.DynamicTransformID]dynamicFunc
	supported map[resource.Type]bool
}

// New builds an empty Store that serves the given resource types. Passing no
// types means the store serves everything ever Put into it (used by tests
// that don't care about the unsupported-type contract).
func New(supported ...resource.Type) *Store {
	s := &Store{
		objects:  make(map[string]Object),
		dynamics: make(map[protocol.DynamicTransformID]dynamicFunc),
	}
	if len(supported) > 0 {
		s.supported = make(map[resource.Type]bool, len(supported))
		for _, t := range supported {
			s.supported[t] = true
		}
	}
	return s
}

// supportsAny reports whether this store was built with an explicit type set
// and, if so, whether at least one of types is in it.
func (s *Store) supportsAny(types []resource.Type) bool {
	if s.supported == nil {
		return true
	}
	for _, t := range types {
		if s.supported[t] {
			return true
		}
	}
	return false
}

// Put inserts or replaces an object.
func (s *Store) Put(obj Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.Identifier] = obj
}

// RegisterDynamic installs a handler for a named dynamic transform so it can
// be advertised in a ConnectRequest and served by RunDynamic.
func (s *Store) RegisterDynamic(id protocol.DynamicTransformID, fn func(obj Object) []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dynamics[id] = fn
}

// DynamicTransformIDs returns the IDs registered so far, for use when
// building a ConnectRequest.
func (s *Store) DynamicTransformIDs() []protocol.DynamicTransformID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]protocol.DynamicTransformID, 0, len(s.dynamics))
	for id := range s.dynamics {
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) get(identifier string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[identifier]
	return obj, ok
}

func (s *Store) resultsFor(ids []string, wantType resource.Type) []protocol.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]protocol.SearchResult, 0, len(ids))
	for _, id := range ids {
		obj, ok := s.objects[id]
		if !ok {
			continue
		}
		if wantType != "" && obj.Type != wantType {
			continue
		}
		results = append(results, protocol.SearchResult{
			ID:    protocol.NewAccessIdentifier(obj.Identifier, ""),
			Type:  obj.Type,
			Title: obj.Title,
		})
	}
	return results
}

// RunSearch performs a case-sensitive substring match over object titles,
// restricted to req.Types when non-empty. A request naming only types this
// store doesn't serve gets the unsupported-type response rather than a
// silent empty result set.
func (s *Store) RunSearch(ctx context.Context, req protocol.SearchRequest) (protocol.SearchResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(req.Types) > 0 && !s.supportsAny(req.Types) {
		return protocol.SearchResponse{Error: msgUnsupportedType}, nil
	}

	wanted := make(map[resource.Type]bool, len(req.Types))
	for _, t := range req.Types {
		wanted[t] = true
	}

	var results []protocol.SearchResult
	for _, obj := range s.objects {
		if len(wanted) > 0 && !wanted[obj.Type] {
			continue
		}
		if req.Query != "" && !strings.Contains(obj.Title, req.Query) {
			continue
		}
		results = append(results, protocol.SearchResult{
			ID:    protocol.NewAccessIdentifier(obj.Identifier, ""),
			Type:  obj.Type,
			Title: obj.Title,
		})
	}
	return protocol.SearchResponse{Results: results}, nil
}

func (s *Store) RunContainerTransform(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	obj, ok := s.get(req.ID.Identifier)
	if !ok || obj.Container == "" {
		return protocol.SearchResponse{}, nil
	}
	return protocol.SearchResponse{Results: s.resultsFor([]string{obj.Container}, "")}, nil
}

func (s *Store) RunContentsTransform(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	obj, ok := s.get(req.ID.Identifier)
	if !ok {
		return protocol.SearchResponse{}, nil
	}
	return protocol.SearchResponse{Results: s.resultsFor(obj.Contents, req.ToType)}, nil
}

func (s *Store) RunOverlaps(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	obj, ok := s.get(req.ID.Identifier)
	if !ok {
		return protocol.SearchResponse{}, nil
	}
	return protocol.SearchResponse{Results: s.resultsFor(obj.Overlaps, "")}, nil
}

func (s *Store) RunOccurAsObj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	obj, ok := s.get(req.ID.Identifier)
	if !ok {
		return protocol.SearchResponse{}, nil
	}
	return protocol.SearchResponse{Results: s.resultsFor(obj.OccurAsObj, "")}, nil
}

func (s *Store) RunOccurAsSubj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	obj, ok := s.get(req.ID.Identifier)
	if !ok {
		return protocol.SearchResponse{}, nil
	}
	return protocol.SearchResponse{Results: s.resultsFor(obj.OccurAsSubj, "")}, nil
}

func (s *Store) RunOccurHasObj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	obj, ok := s.get(req.ID.Identifier)
	if !ok {
		return protocol.SearchResponse{}, nil
	}
	return protocol.SearchResponse{Results: s.resultsFor(obj.OccurHasObj, "")}, nil
}

func (s *Store) RunOccurHasSubj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	obj, ok := s.get(req.ID.Identifier)
	if !ok {
		return protocol.SearchResponse{}, nil
	}
	return protocol.SearchResponse{Results: s.resultsFor(obj.OccurHasSubj, "")}, nil
}

func (s *Store) RunNearbyLocations(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	obj, ok := s.get(req.ID.Identifier)
	if !ok {
		return protocol.SearchResponse{}, nil
	}
	return protocol.SearchResponse{Results: s.resultsFor(obj.Nearby, resource.Location)}, nil
}

// RunDynamic looks up the handler matching req.TransformID and runs it
// against req.ID's object. Unregistered transform names yield empty results
// with no error, per the "supported type, unsupported operation" contract.
func (s *Store) RunDynamic(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	obj, ok := s.get(req.ID.Identifier)
	if !ok {
		return protocol.SearchResponse{}, nil
	}

	s.mu.RLock()
	fn, ok := s.dynamics[req.TransformID]
	s.mu.RUnlock()
	if !ok {
		return protocol.SearchResponse{}, nil
	}

	return protocol.SearchResponse{Results: s.resultsFor(fn(obj), "")}, nil
}

func (s *Store) lookup(kind protocol.LookupKind, wantType resource.Type, id protocol.AccessIdentifier) protocol.LookupResponse {
	obj, ok := s.get(id.Identifier)
	if !ok || obj.Type != wantType {
		return protocol.StubError(kind, id, "resource not found")
	}
	return protocol.LookupResponse{ID: id, Kind: kind, Fields: maps.Clone(obj.Fields)}
}

func (s *Store) LookupCollection(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return s.lookup(protocol.LookupCollection, resource.Collection, id)
}
func (s *Store) LookupPage(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return s.lookup(protocol.LookupPage, resource.Page, id)
}
func (s *Store) LookupPicture(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return s.lookup(protocol.LookupPicture, resource.Picture, id)
}
func (s *Store) LookupVideo(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return s.lookup(protocol.LookupVideo, resource.Video, id)
}
func (s *Store) LookupAudio(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return s.lookup(protocol.LookupAudio, resource.Audio, id)
}
func (s *Store) LookupPerson(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return s.lookup(protocol.LookupPerson, resource.Person, id)
}
func (s *Store) LookupLocation(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return s.lookup(protocol.LookupLocation, resource.Location, id)
}
func (s *Store) LookupOrganization(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return s.lookup(protocol.LookupOrganization, resource.Organization, id)
}
