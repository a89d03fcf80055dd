package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

type memWriter struct {
	objects   map[string][]byte
	multipart int
}

func (w *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.objects[path] = b
	return nil
}

func (w *memWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	w.multipart++
	return w.Put(ctx, path, data, "")
}

func (w *memWriter) Exists(_ context.Context, path string) (bool, error) {
	_, ok := w.objects[path]
	return ok, nil
}

type fakeTrades []domain.TradeRecord

func (f fakeTrades) ListBefore(context.Context, time.Time) ([]domain.TradeRecord, error) {
	return f, nil
}

type fakeOpps []domain.ArbitrageOpportunity

func (f fakeOpps) ListBefore(context.Context, time.Time) ([]domain.ArbitrageOpportunity, error) {
	return f, nil
}

type memAudit struct {
	events []string
}

func (a *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.events = append(a.events, event)
	return nil
}

func (a *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (a *memAudit) ListBefore(context.Context, time.Time) ([]domain.AuditEntry, error) {
	return nil, nil
}

func TestArchiveTrades_WritesJSONLAndAudits(t *testing.T) {
	w := &memWriter{objects: map[string][]byte{}}
	audit := &memAudit{}
	trades := fakeTrades{
		{ID: "t1", Pair: "ADA/USDT", Status: domain.TradeSuccess},
		{ID: "t2", Pair: "ADA/USDT", Status: domain.TradeFailed},
	}
	a := NewArchiver(w, w, trades, fakeOpps{}, audit)

	before := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	n, err := a.ArchiveTrades(context.Background(), before)
	if err != nil {
		t.Fatalf("ArchiveTrades: %v", err)
	}
	if n != 2 {
		t.Fatalf("archived %d, want 2", n)
	}

	body, ok := w.objects["archive/trades/2025-02.jsonl"]
	if !ok {
		t.Fatalf("object not written, have %v", w.objects)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"id":"t1"`) {
		t.Fatalf("unexpected JSONL body:\n%s", body)
	}
	if len(audit.events) != 1 || audit.events[0] != "archive.trades" {
		t.Fatalf("audit events = %v", audit.events)
	}
}

func TestArchive_SecondRunUsesNumberedKey(t *testing.T) {
	w := &memWriter{objects: map[string][]byte{}}
	a := NewArchiver(w, w, fakeTrades{}, fakeOpps{{ID: "o1"}}, &memAudit{})
	before := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if _, err := a.ArchiveOpportunities(context.Background(), before); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if _, ok := w.objects["archive/opportunities/2025-02.jsonl"]; !ok {
		t.Error("first key missing")
	}
	if _, ok := w.objects["archive/opportunities/2025-02-2.jsonl"]; !ok {
		t.Errorf("second run should use a numbered key, have %v", w.objects)
	}
}

func TestArchive_EmptyIsNoop(t *testing.T) {
	w := &memWriter{objects: map[string][]byte{}}
	audit := &memAudit{}
	a := NewArchiver(w, nil, fakeTrades{}, fakeOpps{}, audit)

	n, err := a.ArchiveTrades(context.Background(), time.Now())
	if err != nil || n != 0 {
		t.Fatalf("ArchiveTrades = (%d, %v), want (0, nil)", n, err)
	}
	if len(w.objects) != 0 || len(audit.events) != 0 {
		t.Error("empty archive must not upload or audit")
	}
}

func TestMarshalJSONL(t *testing.T) {
	b, err := marshalJSONL([]map[string]string{{"a": "<b>"}, {"c": "d"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "{\"a\":\"<b>\"}\n{\"c\":\"d\"}\n"
	if !bytes.Equal(b, []byte(want)) {
		t.Fatalf("marshalJSONL = %q, want %q", b, want)
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"minio:9000", false, "http://minio:9000"},
		{"e2.example.com", true, "https://e2.example.com"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		if got := normaliseEndpoint(tt.in, tt.useSSL); got != tt.want {
			t.Errorf("normaliseEndpoint(%q, %v) = %q, want %q", tt.in, tt.useSSL, got, tt.want)
		}
	}
}
