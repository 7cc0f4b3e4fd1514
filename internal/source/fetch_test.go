package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"svitlobot/pkg/logx"
)

func schedulePage(date string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="some other"><p>junk</p></div>`)
	b.WriteString(`<div class="power-off__text extra">`)
	fmt.Fprintf(&b, "<p>Графік погодинних відключень на %s</p>", date)
	for _, line := range fullSection("з 10:00 до 12:00") {
		fmt.Fprintf(&b, "<p><strong>%s</strong></p>", line)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func TestExtractTextLines(t *testing.T) {
	t.Parallel()
	body := `<div class="power-off__text">
		<p>Перший  рядок</p>
		<p><b>Другий</b> &amp; рядок</p>
		<p>   </p>
	</div>`
	got := extractTextLines(body)
	want := []string{"Перший рядок", "Другий & рядок"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("extractTextLines = %v, want %v", got, want)
	}

	if got := extractTextLines("<html><body>nothing here</body></html>"); got != nil {
		t.Fatalf("expected nil for missing block, got %v", got)
	}
}

func TestClientFetch(t *testing.T) {
	t.Parallel()
	today := FormatDate(time.Now().UTC())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, schedulePage(today))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Timezone: "UTC"}, logx.Nop())
	snap, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap == nil || snap.Today == nil {
		t.Fatalf("snapshot = %+v", snap)
	}
	if got := snap.Today.Groups["1.1"].Off; !reflect.DeepEqual(got, []string{"10:00–12:00"}) {
		t.Fatalf("Off = %v", got)
	}
}

func TestClientFetchBadStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Timezone: "UTC"}, logx.Nop())
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestClientFetchEmptyPage(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body><p>Технічні роботи</p></body></html>")
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Timezone: "UTC"}, logx.Nop())
	snap, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil snapshot for page without schedule block, got %+v", snap)
	}
}
