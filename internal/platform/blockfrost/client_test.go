package blockfrost

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAddressUTXOsAndBalance(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /addresses/{addr}/utxos", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("project_id") != "proj" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.PathValue("addr") == "addr_unused" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[
			{"tx_hash":"aa","output_index":0,"address":"addr1","amount":[{"unit":"lovelace","quantity":"5000000"}]},
			{"tx_hash":"bb","output_index":1,"address":"addr1","amount":[{"unit":"lovelace","quantity":"3250000"},{"unit":"abc123","quantity":"7"}]}
		]`))
	})
	mux.HandleFunc("GET /addresses/{addr}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address":"addr1","amount":[{"unit":"lovelace","quantity":"8250000"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, "proj", time.Second)
	ctx := context.Background()

	utxos, err := c.AddressUTXOs(ctx, "addr1")
	if err != nil {
		t.Fatalf("AddressUTXOs: %v", err)
	}
	if len(utxos) != 2 {
		t.Fatalf("utxos = %d, want 2", len(utxos))
	}
	if utxos[1].Lovelace != 3250000 || utxos[1].Assets["abc123"] != 7 {
		t.Errorf("second utxo = %+v", utxos[1])
	}

	none, err := c.AddressUTXOs(ctx, "addr_unused")
	if err != nil || len(none) != 0 {
		t.Fatalf("unused address = (%v, %v), want empty", none, err)
	}

	bal, err := c.AddressBalance(ctx, "addr1")
	if err != nil || bal != 8250000 {
		t.Fatalf("AddressBalance = (%d, %v), want 8250000", bal, err)
	}
}

func TestSubmitTx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tx/submit" || r.Header.Get("Content-Type") != "application/cbor" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		fmt.Fprintf(w, "%q", fmt.Sprintf("tx%d", len(body)))
	}))
	defer srv.Close()

	c := New(srv.URL, "proj", time.Second)
	id, err := c.SubmitTx(context.Background(), []byte{0x84, 0xa0, 0xa0, 0xf5, 0xf6})
	if err != nil {
		t.Fatalf("SubmitTx: %v", err)
	}
	if id != "tx5" {
		t.Errorf("tx id = %q, want tx5", id)
	}
}
