package dispatcher

import (
	"context"
	"fmt"

	"github.com/dreamware/librarian/internal/protocol"
)

// HTTPSender is the production Sender, forwarding requests to endpoints over
// JSON-over-HTTP (protocol.PostJSON), matching the teacher's
// cluster.PostJSON-based broadcast transport.
type HTTPSender struct{}

func (HTTPSender) SendSearch(ctx context.Context, addr string, req protocol.SearchRequest) (protocol.SearchResponse, error) {
	var resp protocol.SearchResponse
	err := protocol.PostJSON(ctx, fmt.Sprintf("http://%s/search", addr), req, &resp)
	return resp, err
}

func (HTTPSender) SendTransform(ctx context.Context, addr string, req protocol.TransformRequest) (protocol.SearchResponse, error) {
	var resp protocol.SearchResponse
	err := protocol.PostJSON(ctx, fmt.Sprintf("http://%s/transform", addr), req, &resp)
	return resp, err
}

func (HTTPSender) SendLookup(ctx context.Context, addr string, req protocol.LookupRequest) (protocol.LookupResponse, error) {
	var resp protocol.LookupResponse
	err := protocol.PostJSON(ctx, fmt.Sprintf("http://%s/lookup", addr), req, &resp)
	return resp, err
}
