package configfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhdalton/surplussync/internal/domain/model"
	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

func testSettings() *model.Settings {
	return &model.Settings{
		EBay: model.Credential{
			ClientID:     "client-123",
			ClientSecret: "secret-456",
			SignInURL:    "https://auth.ebay.com/oauth2/authorize?client_id=client-123",
			RedirectURI:  "Example_App-PRD-ru",
			AccessToken:  "v^1.1#access",
			RefreshToken: "v^1.1#refresh",

			RefreshTokenExpiresAt: "Thu Mar 04 2027",
		},
		ServiceNow: model.ServiceNowAccount{
			InstanceURL: "https://example.service-now.com",
			Username:    "api_user",
			Password:    "api_pass",
		},
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ebay.config.json")
	store := New(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSettings()))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, testSettings(), got)
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "does-not-exist.json"))

	got, err := store.Load(context.Background())

	assert.Nil(t, got)
	var cfgErr *driven.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestStore_LoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ebay.config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"eBay": {`), 0o600))
	store := New(path)

	got, err := store.Load(context.Background())

	assert.Nil(t, got)
	var cfgErr *driven.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, path, cfgErr.Path)
}

// TestStore_DocumentShape pins the on-disk key layout: integrations at the
// top level, snake_case fields beneath. Existing config files depend on it.
func TestStore_DocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ebay.config.json")
	store := New(path)
	require.NoError(t, store.Save(context.Background(), testSettings()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "client-123", doc["eBay"]["client_id"])
	assert.Equal(t, "v^1.1#refresh", doc["eBay"]["refresh_token"])
	assert.Equal(t, "Thu Mar 04 2027", doc["eBay"]["refresh_token_expires_at"])
	assert.Equal(t, "api_user", doc["serviceNow"]["username"])
}

// TestStore_ConcurrentAccessNeverTears simulates two processes (two
// independent Store values on the same path) hammering load and save. A
// reader must always observe a fully-consistent document: the client ID
// and secret are written together, so seeing a mix is a torn read.
func TestStore_ConcurrentAccessNeverTears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ebay.config.json")
	writerStore := New(path)
	readerStore := New(path)
	ctx := context.Background()

	versionA := testSettings()
	versionA.EBay.ClientID = "gen-A"
	versionA.EBay.ClientSecret = "gen-A"
	versionB := testSettings()
	versionB.EBay.ClientID = "gen-B"
	versionB.EBay.ClientSecret = "gen-B"

	require.NoError(t, writerStore.Save(ctx, versionA))

	const iterations = 50

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			s := versionA
			if i%2 == 1 {
				s = versionB
			}
			if err := writerStore.Save(ctx, s); err != nil {
				t.Errorf("save %d: %v", i, err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			got, err := readerStore.Load(ctx)
			if err != nil {
				t.Errorf("load %d: %v", i, err)
				return
			}
			if got.EBay.ClientID != got.EBay.ClientSecret {
				t.Errorf("torn read: client_id %q vs client_secret %q", got.EBay.ClientID, got.EBay.ClientSecret)
				return
			}
		}
	}()

	wg.Wait()
}

func TestStore_LockFileSitsNextToDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ebay.config.json")
	store := New(path)

	require.NoError(t, store.Save(context.Background(), testSettings()))

	_, err := os.Stat(path + ".lock")
	assert.NoError(t, err)
}

func TestStore_SaveOverwritesPriorDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ebay.config.json")
	store := New(path)
	ctx := context.Background()

	first := testSettings()
	require.NoError(t, store.Save(ctx, first))

	second := testSettings()
	second.EBay.AccessToken = "v^1.1#newer"
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v^1.1#newer", got.EBay.AccessToken)
}
