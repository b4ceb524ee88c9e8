package endpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dreamware/librarian/internal/protocol"
)

// State is one of the four states in the endpoint's connection lifecycle
// (spec.md §4.5).
type State string

const (
	Disconnected State = "Disconnected"
	AwaitingAck  State = "AwaitingAck"
	Serving      State = "Serving"
	Terminated   State = "Terminated"
)

// ErrNotServing is returned when a request arrives before the endpoint has
// completed registration (or after it has disconnected/terminated).
var ErrNotServing = errors.New("endpoint: not in Serving state")

// Handler implements the endpoint-side state machine: it registers with the
// broker, then serves search/transform/lookup requests by delegating to a
// DataStore and stamping outbound results with the assigned key.
type Handler struct {
	store DataStore
	log   *zap.SugaredLogger

	mu    sync.RWMutex
	state State
	key   string
}

// NewHandler builds a Handler in the Disconnected state, ready for
// BeginConnect.
func NewHandler(store DataStore, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{store: store, log: log, state: Disconnected}
}

// State returns the handler's current lifecycle state.
func (h *Handler) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Key returns the broker-assigned key, valid once State() == Serving.
func (h *Handler) Key() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.key
}

// HandleConnected processes the broker's LibraryConnected reply. On success
// it stores the assigned key — overwriting any previously requested key with
// the canonical one — and transitions to Serving. On failure (a non-empty
// Error field, e.g. KeyCollision) it logs and remains Disconnected; it must
// not start handling requests.
func (h *Handler) HandleConnected(resp protocol.LibraryConnected) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if resp.Error != "" {
		h.log.Warnw("connect refused by broker", "error", resp.Error)
		h.state = Disconnected
		return fmt.Errorf("endpoint: connect refused: %s", resp.Error)
	}

	h.key = resp.Key
	h.state = Serving
	h.log.Infow("registered with broker", "key", h.key)
	return nil
}

// BeginConnect transitions Disconnected -> AwaitingAck. Callers send the
// ConnectRequest to the broker themselves and feed the reply to
// HandleConnected; this method exists so the state is observable mid-flight.
func (h *Handler) BeginConnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = AwaitingAck
}

// Terminate transitions to Terminated; the handler rejects all further
// requests once here.
func (h *Handler) Terminate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = Terminated
}

// HandleSearch delegates to the DataStore and stamps every result's
// resourceId with this endpoint's assigned key (prepareToSend, spec.md §4.5).
func (h *Handler) HandleSearch(ctx context.Context, req protocol.SearchRequest) (protocol.SearchResponse, error) {
	key, ok := h.servingKey()
	if !ok {
		return protocol.SearchResponse{}, ErrNotServing
	}
	resp, err := h.store.RunSearch(ctx, req)
	if err != nil {
		return protocol.SearchResponse{}, err
	}
	return prepareToSend(resp, key), nil
}

// HandleTransform dispatches req to the DataStore method matching req.Kind
// and stamps the outbound results.
func (h *Handler) HandleTransform(ctx context.Context, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	key, ok := h.servingKey()
	if !ok {
		return protocol.SearchResponse{}, ErrNotServing
	}

	var (
		resp protocol.SearchResponse
		err  error
	)
	switch req.Kind {
	case protocol.ContainerTransform:
		resp, err = h.store.RunContainerTransform(ctx, req)
	case protocol.ContentsTransform:
		resp, err = h.store.RunContentsTransform(ctx, req)
	case protocol.OverlapsTransform:
		resp, err = h.store.RunOverlaps(ctx, req)
	case protocol.OccurAsObj:
		resp, err = h.store.RunOccurAsObj(ctx, req)
	case protocol.OccurAsSubj:
		resp, err = h.store.RunOccurAsSubj(ctx, req)
	case protocol.OccurHasObj:
		resp, err = h.store.RunOccurHasObj(ctx, req)
	case protocol.OccurHasSubj:
		resp, err = h.store.RunOccurHasSubj(ctx, req)
	case protocol.NearbyLocations:
		resp, err = h.store.RunNearbyLocations(ctx, req)
	case protocol.DynamicTransform:
		resp, err = h.store.RunDynamic(ctx, req)
	default:
		return protocol.SearchResponse{}, fmt.Errorf("endpoint: unknown transform kind %q", req.Kind)
	}
	if err != nil {
		return protocol.SearchResponse{}, err
	}
	return prepareToSend(resp, key), nil
}

// HandleLookup dispatches req to the DataStore method matching req.Kind. A
// lookup whose ID.ResourceID doesn't match this endpoint's assigned key
// (i.e. the broker or a misbehaving client addressed the wrong endpoint)
// produces a typed stub with a mismatched-resource-ID error instead of
// being forwarded to the store.
func (h *Handler) HandleLookup(ctx context.Context, req protocol.LookupRequest) (protocol.LookupResponse, error) {
	key, ok := h.servingKey()
	if !ok {
		return protocol.LookupResponse{}, ErrNotServing
	}

	if req.ID.ResourceID != "" && req.ID.ResourceID != key {
		msg := fmt.Sprintf("Received lookup with mismatched resource ID: %s vs %s", req.ID.ResourceID, key)
		return protocol.StubError(req.Kind, req.ID, msg), nil
	}

	switch req.Kind {
	case protocol.LookupCollection:
		return h.store.LookupCollection(ctx, req.ID), nil
	case protocol.LookupPage:
		return h.store.LookupPage(ctx, req.ID), nil
	case protocol.LookupPicture:
		return h.store.LookupPicture(ctx, req.ID), nil
	case protocol.LookupVideo:
		return h.store.LookupVideo(ctx, req.ID), nil
	case protocol.LookupAudio:
		return h.store.LookupAudio(ctx, req.ID), nil
	case protocol.LookupPerson:
		return h.store.LookupPerson(ctx, req.ID), nil
	case protocol.LookupLocation:
		return h.store.LookupLocation(ctx, req.ID), nil
	case protocol.LookupOrganization:
		return h.store.LookupOrganization(ctx, req.ID), nil
	default:
		return protocol.LookupResponse{}, fmt.Errorf("endpoint: unknown lookup kind %q", req.Kind)
	}
}

func (h *Handler) servingKey() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state != Serving {
		return "", false
	}
	return h.key, true
}

// prepareToSend stamps every result's AccessIdentifier.ResourceID with this
// endpoint's assigned key before the response goes out over the wire,
// per spec.md §4.5.
func prepareToSend(resp protocol.SearchResponse, key string) protocol.SearchResponse {
	stamped := make([]protocol.SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		r.ID.ResourceID = key
		stamped[i] = r
	}
	resp.Results = stamped
	return resp
}
