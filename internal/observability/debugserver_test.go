package observability

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"svitlobot/pkg/logx"
)

func TestDebugServerDisabled(t *testing.T) {
	t.Parallel()
	d := NewDebugServer(Config{}, logx.Nop())
	if err := d.Start(); err != nil {
		t.Fatalf("disabled Start: %v", err)
	}
	d.Stop(context.Background())
}

func TestDebugServerRefusesInsecureBind(t *testing.T) {
	t.Parallel()
	d := NewDebugServer(Config{Enabled: true, Addr: "0.0.0.0:0"}, logx.Nop())
	if err := d.Start(); err == nil {
		d.Stop(context.Background())
		t.Fatal("expected refusal for tokenless non-loopback bind")
	}
}

func TestDebugServerTokenGate(t *testing.T) {
	t.Parallel()
	d := NewDebugServer(Config{Enabled: true, Addr: "127.0.0.1:0", Token: "s3cret"}, logx.Nop())
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d.Stop(ctx)
	}()

	base := "http://" + d.ln.Addr().String()

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/debug/pprof/")
	if err != nil {
		t.Fatalf("pprof index: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("tokenless pprof status = %d, want 401", resp.StatusCode)
	}

	resp, err = http.Get(fmt.Sprintf("%s/debug/pprof/?token=%s", base, "s3cret"))
	if err != nil {
		t.Fatalf("pprof with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token pprof status = %d, want 200", resp.StatusCode)
	}
}
