package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/sessiongate/sessiongate/agent"
	"github.com/sessiongate/sessiongate/agent/store"
	"github.com/sessiongate/sessiongate/internal/config"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running agent: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Agent stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname("Session Agent")

	repo, err := store.NewFileRepo(c.GetAgentStorePath())
	if err != nil {
		return fmt.Errorf("store.NewFileRepo: %w", err)
	}

	bus := agent.NewBus()
	go logBroadcasts(bus)

	bridge, err := agent.NewBridge(repo, bus, c.GetBridgeOrigins())
	if err != nil {
		return fmt.Errorf("agent.NewBridge: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetAgentAddr(), Handler: newMux(bridge)}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// newMux exposes the bridge on the loopback interface. Local tooling posts
// every navigated URL to /bridge; the bridge decides whether it carries a
// session.
func newMux(bridge *agent.Bridge) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /bridge", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
			http.Error(w, "url is required", http.StatusBadRequest)
			return
		}
		u, err := url.Parse(body.URL)
		if err != nil {
			http.Error(w, "invalid url", http.StatusBadRequest)
			return
		}
		if err := bridge.HandleCallback(r.Context(), u); err != nil {
			log.Printf("Bridge callback failed: %v\n", err)
			http.Error(w, "callback handling failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /token", func(w http.ResponseWriter, r *http.Request) {
		token, err := bridge.Token(r.Context())
		if err != nil {
			http.Error(w, "token lookup failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})

	mux.HandleFunc("POST /signout", func(w http.ResponseWriter, r *http.Request) {
		if err := bridge.Clear(r.Context()); err != nil {
			http.Error(w, "sign-out failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func logBroadcasts(bus *agent.Bus) {
	for msg := range bus.Subscribe() {
		log.Printf("Broadcast %s for user %s\n", msg.Action, msg.UserID)
	}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Agent listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
