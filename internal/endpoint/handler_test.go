package endpoint

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/librarian/internal/protocol"
	"github.com/dreamware/librarian/internal/resource"
)

// fakeStore is a minimal DataStore for exercising the handler without a real
// backend.
type fakeStore struct {
	searchResp protocol.SearchResponse
	searchErr  error
	lookupResp protocol.LookupResponse
}

func (f *fakeStore) RunSearch(ctx context.Context, req protocol.SearchRequest) (protocol.SearchResponse, error) {
	return f.searchResp, f.searchErr
}
func (f *fakeStore) RunContainerTransform(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	return f.searchResp, f.searchErr
}
func (f *fakeStore) RunContentsTransform(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	return f.searchResp, f.searchErr
}
func (f *fakeStore) RunOverlaps(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	return f.searchResp, f.searchErr
}
func (f *fakeStore) RunOccurAsObj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	return f.searchResp, f.searchErr
}
func (f *fakeStore) RunOccurAsSubj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	return f.searchResp, f.searchErr
}
func (f *fakeStore) RunOccurHasObj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	return f.searchResp, f.searchErr
}
func (f *fakeStore) RunOccurHasSubj(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	return f.searchResp, f.searchErr
}
func (f *fakeStore) RunNearbyLocations(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	return f.searchResp, f.searchErr
}
func (f *fakeStore) RunDynamic(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	return f.searchResp, f.searchErr
}

func (f *fakeStore) LookupCollection(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return f.lookupResp
}
func (f *fakeStore) LookupPage(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return f.lookupResp
}
func (f *fakeStore) LookupPicture(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return f.lookupResp
}
func (f *fakeStore) LookupVideo(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return f.lookupResp
}
func (f *fakeStore) LookupAudio(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return f.lookupResp
}
func (f *fakeStore) LookupPerson(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return f.lookupResp
}
func (f *fakeStore) LookupLocation(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return f.lookupResp
}
func (f *fakeStore) LookupOrganization(ctx context.Context, id protocol.AccessIdentifier) protocol.LookupResponse {
	return f.lookupResp
}

func connectedHandler(t *testing.T, store DataStore, key string) *Handler {
	t.Helper()
	h := NewHandler(store, nil)
	h.BeginConnect()
	require.Equal(t, AwaitingAck, h.State())
	require.NoError(t, h.HandleConnected(protocol.LibraryConnected{Key: key}))
	require.Equal(t, Serving, h.State())
	return h
}

func TestHandleConnectedSuccess(t *testing.T) {
	h := connectedHandler(t, &fakeStore{}, "abc12345")
	assert.Equal(t, "abc12345", h.Key())
}

func TestHandleConnectedRefusalStaysDisconnected(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)
	h.BeginConnect()
	err := h.HandleConnected(protocol.LibraryConnected{Error: "KeyCollision"})
	assert.Error(t, err)
	assert.Equal(t, Disconnected, h.State())
	assert.Empty(t, h.Key())
}

func TestHandleSearchRejectedBeforeServing(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)
	_, err := h.HandleSearch(context.Background(), protocol.SearchRequest{})
	assert.ErrorIs(t, err, ErrNotServing)
}

func TestHandleSearchStampsResourceID(t *testing.T) {
	store := &fakeStore{searchResp: protocol.SearchResponse{Results: []protocol.SearchResult{
		{ID: protocol.AccessIdentifier{Identifier: "obj-1"}, Type: resource.Page, Title: "A Page"},
		{ID: protocol.AccessIdentifier{Identifier: "obj-2"}, Type: resource.Page, Title: "Another Page"},
	}}}
	h := connectedHandler(t, store, "endpointkey1")

	resp, err := h.HandleSearch(context.Background(), protocol.SearchRequest{Query: "castle"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Equal(t, "endpointkey1", r.ID.ResourceID)
	}
}

func TestHandleSearchPropagatesStoreError(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("unsupported type")}
	h := connectedHandler(t, store, "k1")
	_, err := h.HandleSearch(context.Background(), protocol.SearchRequest{})
	assert.Error(t, err)
}

func TestHandleTransformDispatchesOnKind(t *testing.T) {
	store := &fakeStore{searchResp: protocol.SearchResponse{Results: []protocol.SearchResult{
		{ID: protocol.AccessIdentifier{Identifier: "child-1"}, Type: resource.Page},
	}}}
	h := connectedHandler(t, store, "k2")

	resp, err := h.HandleTransform(context.Background(), protocol.TransformRequest{
		Kind: protocol.ContentsTransform,
		ToType: resource.Page,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "k2", resp.Results[0].ID.ResourceID)
}

func TestHandleTransformUnknownKind(t *testing.T) {
	h := connectedHandler(t, &fakeStore{}, "k3")
	_, err := h.HandleTransform(context.Background(), protocol.TransformRequest{Kind: "Bogus"})
	assert.Error(t, err)
}

func TestHandleLookupMismatchedResourceIDProducesStub(t *testing.T) {
	h := connectedHandler(t, &fakeStore{}, "ourkey11")

	resp, err := h.HandleLookup(context.Background(), protocol.LookupRequest{
		ID:   protocol.AccessIdentifier{Identifier: "obj-1", ResourceID: "otherkey"},
		Kind: protocol.LookupPage,
	})
	require.NoError(t, err)
	assert.Equal(t, "Received lookup with mismatched resource ID: otherkey vs ourkey11", resp.ID.Error)
}

func TestHandleLookupMatchingResourceIDDelegatesToStore(t *testing.T) {
	store := &fakeStore{lookupResp: protocol.LookupResponse{
		Kind:   protocol.LookupPage,
		Fields: map[string]any{"title": "A Page"},
	}}
	h := connectedHandler(t, store, "ourkey11")

	resp, err := h.HandleLookup(context.Background(), protocol.LookupRequest{
		ID:   protocol.AccessIdentifier{Identifier: "obj-1", ResourceID: "ourkey11"},
		Kind: protocol.LookupPage,
	})
	require.NoError(t, err)
	assert.Equal(t, "A Page", resp.Fields["title"])
}

func TestHandleLookupEmptyResourceIDDelegatesToStore(t *testing.T) {
	store := &fakeStore{lookupResp: protocol.LookupResponse{Kind: protocol.LookupPage}}
	h := connectedHandler(t, store, "ourkey11")

	_, err := h.HandleLookup(context.Background(), protocol.LookupRequest{
		ID:   protocol.AccessIdentifier{Identifier: "obj-1"},
		Kind: protocol.LookupPage,
	})
	assert.NoError(t, err)
}

func TestTerminateRejectsFurtherRequests(t *testing.T) {
	h := connectedHandler(t, &fakeStore{}, "k4")
	h.Terminate()
	assert.Equal(t, Terminated, h.State())
	_, err := h.HandleSearch(context.Background(), protocol.SearchRequest{})
	assert.ErrorIs(t, err, ErrNotServing)
}
