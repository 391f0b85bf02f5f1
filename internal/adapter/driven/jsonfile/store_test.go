package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/teampanel/internal/domain/model"
	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "data", "users.json"))
	require.NoError(t, err)
	return store
}

func sampleCredentials() []model.Credential {
	return []model.Credential{
		{Username: "admin", Password: "Hallo123", Role: model.RoleAdmin, IsDefaultPassword: true},
		{Username: "zoe", Password: "pw-z", Role: model.RoleUser, MemberID: "m-2"},
		{Username: "bob", Password: "pw-b", Role: model.RoleUser},
	}
}

func TestStore_FetchAllMissingFile(t *testing.T) {
	store := setupStore(t)

	creds, err := store.FetchAll(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, creds)
	assert.Empty(t, creds)
}

func TestStore_RoundTripPreservesOrder(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceAll(ctx, sampleCredentials()))

	got, err := store.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCredentials(), got)
}

func TestStore_ReplaceAllDiscardsOmittedRecords(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceAll(ctx, sampleCredentials()))
	require.NoError(t, store.ReplaceAll(ctx, sampleCredentials()[:1]))

	got, err := store.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCredentials()[:1], got)
}

func TestStore_ReplaceAllEmptyWritesArray(t *testing.T) {
	store := setupStore(t)

	require.NoError(t, store.ReplaceAll(context.Background(), nil))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestStore_DocumentFormat(t *testing.T) {
	store := setupStore(t)

	require.NoError(t, store.ReplaceAll(context.Background(), sampleCredentials()[:1]))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"username\": \"admin\"")

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, true, raw[0]["isDefaultPassword"])
	assert.NotContains(t, raw[0], "memberId", "empty member id is omitted")

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_FetchAllMalformed(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte(`[{"username":`), 0o600))

	_, err := store.FetchAll(context.Background())

	assert.ErrorIs(t, err, driven.ErrMalformedDocument)
}

func TestStore_FetchAllEmptyOrNullDocument(t *testing.T) {
	for _, content := range []string{"", "  \n", "null"} {
		store := setupStore(t)
		require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o600))

		creds, err := store.FetchAll(context.Background())

		require.NoError(t, err, "content %q", content)
		assert.NotNil(t, creds)
		assert.Empty(t, creds)
	}
}

func TestStore_ReadsOriginalServiceDocument(t *testing.T) {
	store := setupStore(t)
	doc := `[
  {
    "username": "admin",
    "password": "Hallo123",
    "role": "admin",
    "isDefaultPassword": true
  },
  {
    "username": "bob",
    "password": "pw1",
    "role": "user",
    "isDefaultPassword": false,
    "memberId": "3"
  }
]`
	require.NoError(t, os.WriteFile(store.Path(), []byte(doc), 0o600))

	creds, err := store.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "3", creds[1].MemberID)
	assert.False(t, creds[1].IsDefaultPassword)
}

func TestStore_CanceledContext(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.ReplaceAll(ctx, sampleCredentials())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.FetchAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ConcurrentReadersSeeWholeDocuments(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	full := sampleCredentials()
	short := full[:1]
	require.NoError(t, store.ReplaceAll(ctx, full))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			next := full
			if i%2 == 0 {
				next = short
			}
			assert.NoError(t, store.ReplaceAll(ctx, next))
		}()
		go func() {
			defer wg.Done()
			got, err := store.FetchAll(ctx)
			if assert.NoError(t, err) {
				assert.Contains(t, []int{len(short), len(full)}, len(got))
			}
		}()
	}
	wg.Wait()
}
