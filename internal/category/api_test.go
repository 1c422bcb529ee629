package category

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/knowledgeout/internal/apiclient"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc) *API {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	client := apiclient.New(server.URL, apiclient.WithHTTPClient(server.Client()), apiclient.WithLogger(logger))
	return NewAPI(client, logger)
}

func TestAPI_List(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/categories" {
			t.Errorf("パス = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"name":"Backend"},{"id":2,"name":"Frontend"}]`))
	})

	got, err := api.List(context.Background())
	if err != nil {
		t.Fatalf("List がエラーを返した: %v", err)
	}
	if len(got) != 2 || got[1].Name != "Frontend" {
		t.Errorf("categories = %+v", got)
	}
}

func TestAPI_List_Empty(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	got, err := api.List(context.Background())
	if err != nil {
		t.Fatalf("List がエラーを返した: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("空のスライスを返すべき: %v", got)
	}
}

func TestAPI_List_DecodeFailure(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1}`))
	})
	if _, err := api.List(context.Background()); err == nil || err.Error() != msgListFailed {
		t.Errorf("err = %v, want %q", err, msgListFailed)
	}
}
