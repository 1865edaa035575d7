package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/sessiongate/sessiongate/internal/config"
	"github.com/sessiongate/sessiongate/stubapi"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running auth stub: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Auth stub stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	config.New() // loads .env before the GetEnv lookups below
	displayAppname("Auth Stub")

	addr := ":" + config.GetEnv("STUB_PORT", "8000")
	api, err := stubapi.New(context.Background(), stubapi.Options{
		Secret:             config.GetEnv("STUB_SECRET", "dev-only-secret"),
		GoogleClientID:     config.GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: config.GetEnv("GOOGLE_CLIENT_SECRET", ""),
		BaseURL:            config.GetEnv("STUB_BASE_URL", "http://localhost:8000"),
	})
	if err != nil {
		return fmt.Errorf("stubapi.New: %w", err)
	}
	if err := seedUsers(api); err != nil {
		return fmt.Errorf("seedUsers: %w", err)
	}

	httpServer := &http.Server{Addr: addr, Handler: api}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func seedUsers(api *stubapi.Server) error {
	if err := api.AddUser("root@example.com", "changethis", "Site Admin", true); err != nil {
		return err
	}
	return api.AddUser("alice@example.com", "wonderland", "Alice Liddell", false)
}

func listenAndServe(server *http.Server) error {
	log.Printf("Auth stub listening on %s\n", server.Addr)
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
