package profile

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehyunk/mallscraper/internal/detector"
	"github.com/jaehyunk/mallscraper/internal/models"
)

func testProfile() *Profile {
	return &Profile{
		Site:  "littlebigkids",
		Stage: models.StageHeuristicDom,
		Selectors: models.SelectorMap{
			models.FieldProductName: ".product-name",
			models.FieldPrice:       ".price",
		},
		Login: &detector.LoginSelectors{
			Container: "form#loginForm",
			Username:  `input[name="member_id"]`,
			Password:  `input[name="member_passwd"]`,
		},
		SampleURL: "https://mall.example.com/product/detail.html?no=1",
	}
}

func TestStoreSaveAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(testProfile()))

	got, err := store.Load("littlebigkids")
	require.NoError(t, err)
	assert.Equal(t, models.StageHeuristicDom, got.Stage)
	assert.Equal(t, ".product-name", got.Selectors[models.FieldProductName])
	require.NotNil(t, got.Login)
	assert.Equal(t, "form#loginForm", got.Login.Container)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStoreSavePreservesCreatedAt(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	p := testProfile()
	require.NoError(t, store.Save(p))
	first, err := store.Load(p.Site)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	p.Stage = models.StageMetaTags
	require.NoError(t, store.Save(p))

	second, err := store.Load(p.Site)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())
	assert.True(t, second.UpdatedAt.After(second.CreatedAt) || second.UpdatedAt.Equal(second.CreatedAt))
	assert.Equal(t, models.StageMetaTags, second.Stage)
}

func TestStoreLoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nope")
	assert.True(t, os.IsNotExist(err))
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(testProfile()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "littlebigkids_profile.json", entries[0].Name())
}
