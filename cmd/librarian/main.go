// Command librarian runs the broker half of the federated search system: it
// accepts endpoint connections, routes search/transform/lookup requests to
// the endpoints that can serve them, and fans out/fans in the responses.
//
// Usage:
//
//	librarian [hostname [port]]
//
// hostname and port default to localhost:8081.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/librarian/internal/config"
	"github.com/dreamware/librarian/internal/dispatcher"
	"github.com/dreamware/librarian/internal/logging"
	"github.com/dreamware/librarian/internal/protocol"
	"github.com/dreamware/librarian/internal/registry"
	"github.com/dreamware/librarian/internal/router"
)

func main() {
	log := logging.New("librarian")
	defer log.Sync()

	cfg := config.ParseLibrarian(os.Args[1:])
	reg := registry.New()
	disp := dispatcher.New(reg, dispatcher.HTTPSender{}, dispatcher.WithLogger(log))

	hm := registry.NewHealthMonitor(reg, 10*time.Second, log)
	hmCtx, hmCancel := context.WithCancel(context.Background())
	go hm.Start(hmCtx)

	srv := &broker{reg: reg, disp: disp, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/connect", srv.handleConnect)
	mux.HandleFunc("/search", srv.handleSearch)
	mux.HandleFunc("/transform", srv.handleTransform)
	mux.HandleFunc("/lookup", srv.handleLookup)
	mux.HandleFunc("/stats", srv.handleStats)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infow("librarian listening", "addr", cfg.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("listen failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	hmCancel()
	hm.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	log.Info("librarian stopped")
}

// broker wires the registry, router, and dispatcher into HTTP handlers.
type broker struct {
	reg  *registry.Registry
	disp *dispatcher.Dispatcher
	log  *zap.SugaredLogger
}

func (b *broker) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req protocol.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.log.Warnw("bad connect payload", "error", err)
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	key, err := b.reg.Connect(req)
	if err != nil {
		_ = json.NewEncoder(w).Encode(protocol.LibraryConnected{Error: err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(protocol.LibraryConnected{Key: key})
}

func (b *broker) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req protocol.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.log.Warnw("bad search payload", "error", err)
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	snap := b.reg.Snapshot()
	targets := router.RouteSearch(req, snap)
	resp := b.disp.DispatchSearch(r.Context(), req, targets)
	_ = json.NewEncoder(w).Encode(resp)
}

func (b *broker) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req protocol.TransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.log.Warnw("bad transform payload", "error", err)
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	snap := b.reg.Snapshot()
	targets, err := router.RouteTransform(req, snap)
	if err != nil {
		if !errors.Is(err, router.ErrUnknownResource) {
			b.log.Warnw("transform routing failed", "error", err)
			_ = json.NewEncoder(w).Encode(protocol.SearchResponse{Error: err.Error()})
			return
		}
		// An unrecognized resourceId is routed exactly like "no endpoint
		// supports this type": the dispatcher's zero-target path already
		// yields the standard, client-facing no-support message.
		targets = nil
	}
	resp := b.disp.DispatchTransform(r.Context(), req, targets)
	_ = json.NewEncoder(w).Encode(resp)
}

func (b *broker) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req protocol.LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.log.Warnw("bad lookup payload", "error", err)
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	snap := b.reg.Snapshot()
	targets := router.RouteLookup(req.ID, snap)
	resp := b.disp.DispatchLookup(r.Context(), req, targets)
	_ = json.NewEncoder(w).Encode(resp)
}

func (b *broker) handleStats(w http.ResponseWriter, _ *http.Request) {
	_ = json.NewEncoder(w).Encode(b.reg.Stats())
}
