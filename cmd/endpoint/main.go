// Command endpoint runs a data-serving backend that registers with a
// librarian broker and answers the search, transform, and lookup requests
// the broker routes to it.
//
// Usage:
//
//	endpoint [myHost myPort [libHost libPort]]
//
// Defaults to localhost:8082 for itself and localhost:8081 for the broker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dreamware/librarian/internal/config"
	"github.com/dreamware/librarian/internal/endpoint"
	"github.com/dreamware/librarian/internal/logging"
	"github.com/dreamware/librarian/internal/memstore"
	"github.com/dreamware/librarian/internal/protocol"
	"github.com/dreamware/librarian/internal/resource"
)

func main() {
	log := logging.New("endpoint")
	defer log.Sync()

	cfg := config.ParseEndpoint(os.Args[1:])
	store := memstore.New(demoSupportedTypes...)
	seedDemoData(store)

	h := endpoint.NewHandler(store, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		var req protocol.SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		resp, err := h.HandleSearch(r.Context(), req)
		if err != nil {
			_ = json.NewEncoder(w).Encode(protocol.SearchResponse{Error: err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/transform", func(w http.ResponseWriter, r *http.Request) {
		var req protocol.TransformRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		resp, err := h.HandleTransform(r.Context(), req)
		if err != nil {
			_ = json.NewEncoder(w).Encode(protocol.SearchResponse{Error: err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		var req protocol.LookupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		resp, err := h.HandleLookup(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:              cfg.MyAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infow("endpoint listening", "addr", cfg.MyAddr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("listen failed", "error", err)
		}
	}()

	h.BeginConnect()
	connect(context.Background(), cfg, store, h, log)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	h.Terminate()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	log.Info("endpoint stopped")
}

// connect registers this endpoint with the broker, retrying on failure to
// absorb broker startup delays, matching the teacher's node registration
// backoff.
func connect(ctx context.Context, cfg config.Endpoint, store *memstore.Store, h *endpoint.Handler, log interface {
	Infow(string, ...any)
	Warnw(string, ...any)
	Fatalw(string, ...any)
}) {
	port, err := strconv.Atoi(cfg.MyPort)
	if err != nil {
		log.Fatalw("invalid port", "port", cfg.MyPort, "error", err)
	}

	req := protocol.ConnectRequest{
		Hostname:          cfg.MyHost,
		Port:              port,
		SupportedTypes:    demoSupportedTypes,
		DynamicTransforms: store.DynamicTransformIDs(),
	}

	var lastErr error
	for i := 0; i < 10; i++ {
		var resp protocol.LibraryConnected
		lastErr = protocol.PostJSON(ctx, "http://"+cfg.LibAddr()+"/connect", req, &resp)
		if lastErr == nil {
			if err := h.HandleConnected(resp); err != nil {
				log.Fatalw("broker refused connection", "error", err)
			}
			log.Infow("registered with broker", "broker", cfg.LibAddr(), "key", h.Key())
			return
		}
		log.Warnw("connect retry", "attempt", i+1, "error", lastErr)
		time.Sleep(400 * time.Millisecond)
	}
	log.Fatalw("failed to connect to broker", "error", lastErr)
}

// demoSupportedTypes is what the bundled demo store advertises to the broker
// and, in turn, the only types it will answer search requests about.
var demoSupportedTypes = []resource.Type{resource.Collection, resource.Page, resource.Picture}

// seedDemoData populates the store with a small fixed set of objects so the
// endpoint is immediately exercisable. Not a substitute for a real backend;
// spec.md §1 scopes persistence and ranking out of core.
func seedDemoData(store *memstore.Store) {
	store.Put(memstore.Object{
		Identifier: "collection-1",
		Type:       resource.Collection,
		Title:      "Regional History Archive",
		Contents:   []string{"page-1", "picture-1"},
		Fields:     map[string]any{"title": "Regional History Archive"},
	})
	store.Put(memstore.Object{
		Identifier: "page-1",
		Type:       resource.Page,
		Title:      "Founding of the Archive",
		Container:  "collection-1",
		Fields:     map[string]any{"title": "Founding of the Archive"},
	})
	store.Put(memstore.Object{
		Identifier: "picture-1",
		Type:       resource.Picture,
		Title:      "Archive Reading Room",
		Container:  "collection-1",
		Fields:     map[string]any{"title": "Archive Reading Room"},
	})
}
