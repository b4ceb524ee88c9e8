// Package endpoint implements the endpoint-side protocol handler (spec.md
// §4.5): the connect/register state machine, request dispatch to a local
// DataStore, and outbound payload stamping.
package endpoint

import (
	"context"

	"github.com/dreamware/librarian/internal/protocol"
)

// DataStore is the capability interface an endpoint's backend must satisfy.
// spec.md §1 scopes the actual search/ranking/persistence implementation out
// of core — this interface is the seam the broker-facing handler talks to.
//
// Contract for non-support, per spec.md §4.5:
//   - Unsupported type: return empty Results and a non-empty error.
//   - Supported type, unsupported operation: return empty Results and NO error.
type DataStore interface {
	RunSearch(ctx context.Context, req protocol.SearchRequest) (protocol.SearchResponse, error)

	RunContainerTransform(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error)
	RunContentsTransform(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error)
	RunOverlaps(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error)
	RunOccurAsObj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error)
	RunOccurAsSubj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error)
	RunOccurHasObj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error)
	RunOccurHasSubj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error)
	RunNearbyLocations(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error)
	RunDynamic(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error)

	LookupCollection(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse
	LookupPage(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse
	LookupPicture(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse
	LookupVideo(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse
	LookupAudio(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse
	LookupPerson(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse
	LookupLocation(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse
	LookupOrganization(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse
}
