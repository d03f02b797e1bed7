package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGammaPoller_FlattensTokensAndSkipsClosed(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") == "0" {
			w.Write([]byte(`[
				{"condition_id": "cond-1", "closed": false, "tokens": [
					{"token_id": "tok-1a"}, {"token_id": "tok-1b"}
				]},
				{"condition_id": "cond-2", "closed": true, "tokens": [
					{"token_id": "tok-2a"}
				]}
			]`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	p := NewGammaPoller(server.URL)
	p.pageSize = 10

	assets, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets (closed market skipped), got %d: %+v", len(assets), assets)
	}
	for _, a := range assets {
		if a.ConditionID != "cond-1" {
			t.Errorf("unexpected condition ID: %s", a.ConditionID)
		}
	}
}

func TestGammaPoller_PaginatesUntilShortPage(t *testing.T) {
	pages := [][]byte{
		[]byte(`[{"condition_id": "c1", "closed": false, "tokens": [{"token_id": "t1"}]},
		         {"condition_id": "c2", "closed": false, "tokens": [{"token_id": "t2"}]}]`),
		[]byte(`[{"condition_id": "c3", "closed": false, "tokens": [{"token_id": "t3"}]}]`),
	}
	served := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if served < len(pages) {
			w.Write(pages[served])
			served++
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	p := NewGammaPoller(server.URL)
	p.pageSize = 2

	assets, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("expected 3 assets across two pages, got %d", len(assets))
	}
}
