package servicenow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhdalton/surplussync/internal/adapter/driven/httpcall"
	"github.com/mhdalton/surplussync/internal/domain/model"
	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(httpcall.New(), model.ServiceNowAccount{
		InstanceURL: srv.URL,
		Username:    "sync-user",
		Password:    "sync-pass",
	})
}

func TestLookupAsset_Found(t *testing.T) {
	var gotPath, gotQuery string
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[{"sys_id":"999"}]}`))
	}))
	defer srv.Close()

	sysID, found, err := newTestClient(srv).LookupAsset(context.Background(), "XYZ789")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "999", sysID)
	assert.Equal(t, "/api/now/table/u_computer_surplus_items", gotPath)
	assert.Contains(t, gotQuery, "sysparm_fields=sys_id")
	assert.Contains(t, gotQuery, "sysparm_limit=1")
	assert.Contains(t, gotQuery, "u_icn=XYZ789")
	assert.Equal(t, "sync-user", gotUser)
	assert.Equal(t, "sync-pass", gotPass)
}

func TestLookupAsset_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer srv.Close()

	sysID, found, err := newTestClient(srv).LookupAsset(context.Background(), "ABC123")

	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, sysID)
}

func TestLookupAsset_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"Insufficient rights"}}`))
	}))
	defer srv.Close()

	_, _, err := newTestClient(srv).LookupAsset(context.Background(), "ABC123")

	var lookupErr *driven.AssetLookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "ABC123", lookupErr.AssetTag)
	assert.Equal(t, http.StatusForbidden, lookupErr.Status)
	assert.Contains(t, lookupErr.Body, "Insufficient rights")
}

func decodeRecord(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(raw, &rec))
	return rec
}

func TestCreateAsset_SingleItemWithPrice(t *testing.T) {
	var gotMethod, gotPath string
	var gotRecord map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotRecord = decodeRecord(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"sys_id":"new-1"}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv).CreateAsset(context.Background(), model.AssetSale{
		AssetTag: "ABC123",
		Price:    "50.00",
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/now/table/u_computer_surplus_items", gotPath)
	assert.Equal(t, map[string]any{
		"u_icn":        "ABC123",
		"u_item_state": "Sold",
		"u_price":      "50.00",
	}, gotRecord)
}

func TestCreateAsset_BundleWithoutPrice(t *testing.T) {
	var gotRecord map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRecord = decodeRecord(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv).CreateAsset(context.Background(), model.AssetSale{
		AssetTag:    "ABC123",
		SiblingTags: []string{"AAA", "BBB"},
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"u_icn":         "ABC123",
		"u_item_state":  "Sold",
		"u_description": "This item is part of a set AAA, BBB",
	}, gotRecord)
}

func TestCreateAsset_BundleWithPrice(t *testing.T) {
	var gotRecord map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRecord = decodeRecord(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv).CreateAsset(context.Background(), model.AssetSale{
		AssetTag:    "XYZ789",
		Price:       "120.00",
		SiblingTags: []string{"AAA", "BBB"},
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"u_icn":         "XYZ789",
		"u_item_state":  "Sold",
		"u_price":       "120.00",
		"u_description": "This item is part of a set AAA, BBB",
	}, gotRecord)
}

func TestCreateAsset_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv).CreateAsset(context.Background(), model.AssetSale{AssetTag: "ABC123"})

	var writeErr *driven.AssetWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "ABC123", writeErr.AssetTag)
	assert.Equal(t, http.StatusInternalServerError, writeErr.Status)
}

func TestUpdateAsset_AddressesRecordBySysID(t *testing.T) {
	var gotMethod, gotPath string
	var gotRecord map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotRecord = decodeRecord(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"sys_id":"999"}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv).UpdateAsset(context.Background(), "999", model.AssetSale{
		AssetTag:    "XYZ789",
		SiblingTags: []string{"AAA", "BBB"},
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/now/table/u_computer_surplus_items/999", gotPath)
	// The tag is absent on update: sys_id already addresses the record.
	assert.Equal(t, map[string]any{
		"u_item_state":  "Sold",
		"u_description": "This item is part of a set AAA, BBB",
	}, gotRecord)
}

func TestUpdateAsset_MinimalRecord(t *testing.T) {
	var gotRecord map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRecord = decodeRecord(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv).UpdateAsset(context.Background(), "42", model.AssetSale{AssetTag: "LONER1"})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"u_item_state": "Sold"}, gotRecord)
}

func TestUpdateAsset_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"No Record found"}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv).UpdateAsset(context.Background(), "gone", model.AssetSale{AssetTag: "XYZ789"})

	var writeErr *driven.AssetWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, http.StatusNotFound, writeErr.Status)
}
