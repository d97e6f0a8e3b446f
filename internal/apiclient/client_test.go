package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vessel struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /vessels/1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		json.NewEncoder(w).Encode(vessel{ID: 1, Name: "INS Delhi"})
	})
	mux.HandleFunc("POST /vessels", func(w http.ResponseWriter, r *http.Request) {
		var v vessel
		json.NewDecoder(r.Body).Decode(&v)
		v.ID = 2
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(v)
	})
	mux.HandleFunc("PUT /vessels/2", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		io.Copy(w, r.Body)
	})
	mux.HandleFunc("DELETE /vessels/2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="drawing.svg"`)
		w.Write([]byte("<svg/>"))
	})
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		f, h, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file field", http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		json.NewEncoder(w).Encode(map[string]string{"name": h.Filename, "body": string(data)})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestVerbs(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := New(srv.URL+"/", StaticToken("tok"))

	var v vessel
	require.NoError(t, c.Get(ctx, "/vessels/1", &v))
	assert.Equal(t, vessel{ID: 1, Name: "INS Delhi"}, v)

	require.NoError(t, c.Post(ctx, "vessels", vessel{Name: "INS Kolkata"}, &v))
	assert.Equal(t, vessel{ID: 2, Name: "INS Kolkata"}, v)

	var raw json.RawMessage
	require.NoError(t, c.Put(ctx, "/vessels/2", json.RawMessage(`{"id":2,"name":"INS Kochi"}`), &raw))
	assert.JSONEq(t, `{"id":2,"name":"INS Kochi"}`, string(raw))

	require.NoError(t, c.Del(ctx, "/vessels/2", &v))
}

func TestAPIError(t *testing.T) {
	srv := newTestServer(t)
	session := &Session{}
	c := New(srv.URL, session)

	err := c.Get(context.Background(), "/vessels/1", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Message)

	session.SetToken("tok")
	assert.NoError(t, c.Get(context.Background(), "/vessels/1", nil))

	err = c.Get(context.Background(), "/nowhere", nil)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestDownloadAndUpload(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := New(srv.URL, nil)

	data, name, err := c.Download(ctx, "/export")
	require.NoError(t, err)
	assert.Equal(t, "drawing.svg", name)
	assert.Equal(t, "<svg/>", string(data))

	var out map[string]string
	require.NoError(t, c.Upload(ctx, "/upload", "hull.png", strings.NewReader("pixels"), &out))
	assert.Equal(t, "hull.png", out["name"])
	assert.Equal(t, "pixels", out["body"])
}

func TestNoBaseURL(t *testing.T) {
	c := &Client{}
	assert.ErrorIs(t, c.Get(context.Background(), "/x", nil), ErrNoBaseURL)
}
