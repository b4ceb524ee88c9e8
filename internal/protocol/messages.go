// Package protocol defines the wire-level request and response messages
// exchanged between the Librarian broker and its endpoints, per spec.md §3
// and §6. Every message is a plain struct with JSON tags; integers, strings,
// lists, and optional (pointer or omitempty) fields are the only value
// kinds, matching the "structured message format" spec.md assumes.
package protocol

import "github.com/dreamware/librarian/internal/resource"

// AccessIdentifier locates a single object within one endpoint. ResourceID
// names the endpoint that owns the object; Identifier is opaque within that
// endpoint. Error is populated only on lookup-failure stubs.
type AccessIdentifier struct {
	Identifier string `json:"identifier"`
	ResourceID string `json:"resourceId"`
	Error      string `json:"error,omitempty"`
}

// NewAccessIdentifier builds an AccessIdentifier for a fresh object,
// stamping the owning endpoint's key as ResourceID.
func NewAccessIdentifier(identifier, resourceID string) AccessIdentifier {
	return AccessIdentifier{Identifier: identifier, ResourceID: resourceID}
}

// Params carries the paging and locale parameters common to every transform
// and search request.
type Params struct {
	Language     string `json:"language,omitempty"`
	NumRequested int    `json:"numRequested,omitempty"`
	StartAt      int    `json:"startAt,omitempty"`
}

// DynamicTransformID names an endpoint-defined operation. Two IDs are equal
// iff both Name and FromType match; the same Name may be overloaded across
// different FromTypes.
type DynamicTransformID struct {
	Name     string        `json:"name"`
	FromType resource.Type `json:"fromType"`
}

// Equal reports whether two DynamicTransformIDs name the same transform.
func (d DynamicTransformID) Equal(o DynamicTransformID) bool {
	return d.Name == o.Name && d.FromType == o.FromType
}

// ConnectRequest is sent by an endpoint to the broker on startup.
type ConnectRequest struct {
	Hostname          string               `json:"hostname"`
	Port              int                  `json:"port"`
	GroupID           string               `json:"groupId,omitempty"`
	RequestedKey      string               `json:"requestedKey,omitempty"`
	SupportedTypes    []resource.Type      `json:"supportedTypes"`
	DynamicTransforms []DynamicTransformID `json:"dynamicTransforms,omitempty"`
}

// LibraryConnected is the broker's reply to a ConnectRequest. On success Key
// carries the assigned (or idempotently reconfirmed) key and Error is empty.
// On refusal, Key is empty and Error explains why (KeyCollision, spec.md §7).
type LibraryConnected struct {
	Key   string `json:"key"`
	Error string `json:"error,omitempty"`
}

// SearchRequest is the unscoped, fleet-wide query request.
type SearchRequest struct {
	Query  string          `json:"query"`
	Params Params          `json:"params"`
	Types  []resource.Type `json:"types"`
}

// SearchResult is a single hit returned by an endpoint's data store.
type SearchResult struct {
	ID    AccessIdentifier `json:"id"`
	Type  resource.Type    `json:"type"`
	Title string           `json:"title,omitempty"`
}

// SearchResponse is returned for both Search and every transform request
// (transforms return the same envelope, carrying results of the `to` type).
type SearchResponse struct {
	Error   string         `json:"error,omitempty"`
	Results []SearchResult `json:"results"`
}

// TransformRequest is the common shape of the nine transform kinds. Kind
// selects which operation this is; FromType/ToType are populated as the
// operation requires (ToType only for ContentsTransform); TransformID is
// populated only for DynamicTransform.
type TransformRequest struct {
	ID          AccessIdentifier   `json:"id"`
	Kind        TransformKind      `json:"kind"`
	FromType    resource.Type      `json:"fromType,omitempty"`
	ToType      resource.Type      `json:"toType,omitempty"`
	TransformID DynamicTransformID `json:"transformId,omitempty"`
	Params      Params             `json:"params"`
}

// TransformKind enumerates the nine transform request kinds from spec.md §3.
type TransformKind string

const (
	ContainerTransform TransformKind = "ContainerTransform"
	ContentsTransform  TransformKind = "ContentsTransform"
	OverlapsTransform  TransformKind = "OverlapsTransform"
	OccurAsObj         TransformKind = "OccurAsObj"
	OccurAsSubj        TransformKind = "OccurAsSubj"
	OccurHasObj        TransformKind = "OccurHasObj"
	OccurHasSubj       TransformKind = "OccurHasSubj"
	NearbyLocations    TransformKind = "NearbyLocations"
	DynamicTransform   TransformKind = "DynamicTransform"
)

// LookupKind enumerates the eight typed lookup request kinds.
type LookupKind string

const (
	LookupCollection   LookupKind = "Collection"
	LookupPage         LookupKind = "Page"
	LookupPicture      LookupKind = "Picture"
	LookupVideo        LookupKind = "Video"
	LookupAudio        LookupKind = "Audio"
	LookupPerson       LookupKind = "Person"
	LookupLocation     LookupKind = "Location"
	LookupOrganization LookupKind = "Organization"
)

// LookupRequest asks for a single typed object by AccessIdentifier.
type LookupRequest struct {
	ID   AccessIdentifier `json:"id"`
	Kind LookupKind       `json:"kind"`
}

// LookupResponse is the typed response to a LookupRequest. Fields is an
// opaque payload bag (the actual resource attributes), left generic because
// the shape of a Page differs from the shape of a Person and spec.md
// deliberately leaves the data-store schema out of core scope (§1).
type LookupResponse struct {
	ID     AccessIdentifier `json:"id"`
	Kind   LookupKind       `json:"kind"`
	Fields map[string]any   `json:"fields,omitempty"`
}

// StubError builds a LookupResponse carrying only an error, used by the
// Dispatcher for UnknownResource (spec.md §4.4) and by the Endpoint-side
// handler for mismatched-resource-ID lookups (spec.md §4.5).
func StubError(kind LookupKind, id AccessIdentifier, errMsg string) LookupResponse {
	id.Error = errMsg
	return LookupResponse{ID: id, Kind: kind}
}
