package main_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/meigma/ferry/cmd/ferry/cli"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"ferry": func() int {
			if err := cli.Execute(); err != nil {
				return 1
			}
			return 0
		},
	}))
}

func TestCLI(t *testing.T) {
	srv := newFakeGoFile(t)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(5 * time.Second):
		}
		writeJSON(w, map[string]any{"status": "ok", "data": map[string]string{"server": "late"}})
	}))
	t.Cleanup(slow.Close)

	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			env.Setenv("FERRY_HOSTING_API_URL", srv.URL)
			env.Setenv("FERRY_HOSTING_UPLOAD_URL", srv.URL+"/{server}/uploadFile")
			env.Setenv("BROKEN_API", broken.URL)
			env.Setenv("SLOW_API", slow.URL)
			env.Setenv("FERRY_PROGRESS", "plain")
			// testscript sets HOME=/no-home which is read-only
			env.Setenv("XDG_CACHE_HOME", env.WorkDir+"/.cache")
			env.Setenv("XDG_CONFIG_HOME", env.WorkDir+"/.config")
			return nil
		},
	})
}

// newFakeGoFile serves the getServer and uploadFile endpoints.
func newFakeGoFile(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /getServer", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"status": "ok",
			"data":   map[string]string{"server": "store1"},
		})
	})
	mux.HandleFunc("POST /{server}/uploadFile", func(w http.ResponseWriter, r *http.Request) {
		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		part, err := mr.NextPart()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		name := part.FileName()
		writeJSON(w, map[string]any{
			"status": "ok",
			"data": map[string]string{
				"downloadPage": "https://gofile.io/d/" + r.PathValue("server"),
				"directLink":   "https://" + r.PathValue("server") + ".gofile.io/download/" + name,
				"fileName":     name,
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
