package proxy_test

import (
	"net"
	"net/url"
	"testing"
	"time"

	"descargo/internal/proxy"
)

func TestNewParsesList(t *testing.T) {
	mgr, err := proxy.New("socks5://10.0.0.1:1080, http://10.0.0.2:8080 ,", false, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if mgr.Count() != 2 {
		t.Errorf("Count = %d, want 2", mgr.Count())
	}
}

func TestNewRejectsBrokenURL(t *testing.T) {
	if _, err := proxy.New("://broken", false, time.Second); err == nil {
		t.Fatal("expected an error for an unparseable proxy URL")
	}
}

func TestGetEmptyPool(t *testing.T) {
	mgr, err := proxy.New("", true, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := mgr.Get(t.Context())
	if err != nil || got != "" {
		t.Errorf("Get on empty pool = (%q, %v), want empty and nil", got, err)
	}
}

func TestGetWithoutHealthCheck(t *testing.T) {
	mgr, err := proxy.New("socks5://10.0.0.1:1080", false, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := mgr.Get(t.Context())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got != "socks5://10.0.0.1:1080" {
		t.Errorf("Get = %q", got)
	}
}

func TestGetHealthChecked(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	mgr, err := proxy.New("http://"+ln.Addr().String(), true, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := mgr.Get(t.Context())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if u, parseErr := url.Parse(got); parseErr != nil || u.Host != ln.Addr().String() {
		t.Errorf("Get = %q, want the live listener", got)
	}
}

func TestGetNoHealthyProxies(t *testing.T) {
	// A listener that is immediately closed leaves a port nothing accepts on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	addr := ln.Addr().String()
	ln.Close()

	mgr, err := proxy.New("http://"+addr, true, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := mgr.Get(t.Context()); err == nil {
		t.Fatal("expected an error when no proxy passes the health check")
	}
}
