package httpcall

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

func TestCall_JSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","refresh_token_expires_in":47304000}`))
	}))
	defer srv.Close()

	res, err := New().Call(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	payload, ok := res.JSON.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tok", payload["access_token"])
	assert.Equal(t, float64(47304000), payload["refresh_token_expires_in"])
}

// TestCall_NonJSONResponse covers the marketplace API's habit of returning
// XML on error paths: the body must come back as text, not an error.
func TestCall_NonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<error>upstream unavailable</error>`))
	}))
	defer srv.Close()

	res, err := New().Call(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.Nil(t, res.JSON)
	assert.Equal(t, `<error>upstream unavailable</error>`, res.Text())
}

func TestCall_DeclaredJSONButUnparseable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"broken":`))
	}))
	defer srv.Close()

	res, err := New().Call(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)

	require.NoError(t, err)
	assert.Nil(t, res.JSON)
	assert.Equal(t, `{"broken":`, res.Text())
}

func TestCall_BasicAuthAndHeaders(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New().Call(context.Background(), http.MethodPost, srv.URL,
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		[]byte("grant_type=authorization_code"),
		&BasicAuth{Username: "client-id", Password: "client-secret"})

	require.NoError(t, err)
	require.True(t, gotOK)
	assert.Equal(t, "client-id", gotUser)
	assert.Equal(t, "client-secret", gotPass)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
}

func TestCall_RejectsUnsupportedMethod(t *testing.T) {
	res, err := New().Call(context.Background(), http.MethodDelete, "http://localhost/", nil, nil, nil)

	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported method")
}

func TestCall_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	caller := &Caller{Timeout: 50 * time.Millisecond}

	res, err := caller.Call(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)

	assert.Nil(t, res)
	require.ErrorIs(t, err, driven.ErrCallTimeout)
}

func TestCall_PutMethodAllowed(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	_, err := New().Call(context.Background(), http.MethodPut, srv.URL, nil, []byte(`{"u_item_state":"Sold"}`), nil)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
}
