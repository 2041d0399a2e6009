package httpserver_test

import (
	"errors"
	"io"
	"net/http"
	"testing"

	httpserver "vidgrab/pkg/http/server"
)

func TestServeAndShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	srv, err := httpserver.New(handler, httpserver.Options{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}

	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if string(body) != "pong" {
		t.Errorf("body = %q, want pong", body)
	}

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if err := <-srv.Notify(); !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Notify() = %v, want ErrServerClosed", err)
	}

	if _, ok := <-srv.Notify(); ok {
		t.Error("Notify() channel not closed after shutdown")
	}
}

func TestNewAddrInUse(t *testing.T) {
	first, err := httpserver.New(http.NotFoundHandler(), httpserver.Options{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(func() { _ = first.Shutdown() })

	if _, err := httpserver.New(http.NotFoundHandler(), httpserver.Options{Addr: first.Addr()}); err == nil {
		t.Error("New() on a bound address succeeded")
	}
}
