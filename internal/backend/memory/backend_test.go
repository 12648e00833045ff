package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/federated-rag/retrieval-gateway/internal/retrieval"
)

func seeded(t *testing.T) *Backend {
	t.Helper()
	b := New()
	_, err := b.UploadDocuments(context.Background(), []retrieval.Document{
		{URL: "https://r/pasta", Site: "recipes", Name: "Pasta Carbonara", Content: "eggs and guanciale"},
		{URL: "https://r/soup", Site: "recipes", Name: "Tomato Soup", Content: "roasted tomatoes"},
		{URL: "https://p/ep1", Site: "podcasts", Name: "Episode One", Content: "pasta history"},
	})
	require.NoError(t, err)
	return b
}

func TestSearch_SubstringMatchAcrossFields(t *testing.T) {
	t.Parallel()
	b := seeded(t)

	results, err := b.SearchAllSites(context.Background(), "pasta", 10)
	require.NoError(t, err)
	require.Len(t, results, 2, "matches name on one doc and content on another")

	results, err = b.SearchAllSites(context.Background(), "PASTA", 10)
	require.NoError(t, err)
	require.Len(t, results, 2, "match is case-insensitive")
}

func TestSearch_SiteRestriction(t *testing.T) {
	t.Parallel()
	b := seeded(t)

	results, err := b.Search(context.Background(), "pasta", []string{"recipes"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "https://r/pasta", results[0].URL)

	results, err = b.Search(context.Background(), "pasta", []string{"news"}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearch_LimitAndInsertionOrder(t *testing.T) {
	t.Parallel()
	b := seeded(t)

	results, err := b.SearchAllSites(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "https://r/pasta", results[0].URL)
	require.Equal(t, "https://r/soup", results[1].URL)
}

func TestSearchByURL(t *testing.T) {
	t.Parallel()
	b := seeded(t)

	res, err := b.SearchByURL(context.Background(), "https://r/soup")
	require.NoError(t, err)
	require.Equal(t, "Tomato Soup", res.Name)

	_, err = b.SearchByURL(context.Background(), "https://r/missing")
	require.ErrorIs(t, err, retrieval.ErrNotFound)
}

func TestUploadDocuments_UpsertKeepsOrder(t *testing.T) {
	t.Parallel()
	b := seeded(t)

	count, err := b.UploadDocuments(context.Background(), []retrieval.Document{
		{URL: "https://r/pasta", Site: "recipes", Name: "Pasta, revised"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	res, err := b.SearchByURL(context.Background(), "https://r/pasta")
	require.NoError(t, err)
	require.Equal(t, "Pasta, revised", res.Name)

	results, err := b.SearchAllSites(context.Background(), "", 10)
	require.NoError(t, err)
	require.Equal(t, "https://r/pasta", results[0].URL, "upsert must not move the document")
	require.Len(t, results, 3)
}

func TestDeleteBySite(t *testing.T) {
	t.Parallel()
	b := seeded(t)

	deleted, err := b.DeleteBySite(context.Background(), "recipes")
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	sites, err := b.GetSites(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"podcasts"}, sites)

	_, err = b.SearchByURL(context.Background(), "https://r/pasta")
	require.ErrorIs(t, err, retrieval.ErrNotFound)
}

func TestGetSites_SortedDistinct(t *testing.T) {
	t.Parallel()
	b := seeded(t)

	sites, err := b.GetSites(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"podcasts", "recipes"}, sites)
}

func TestFactory(t *testing.T) {
	t.Parallel()

	backend, err := Factory(retrieval.Endpoint{Name: "mem", Kind: retrieval.KindMemory})
	require.NoError(t, err)
	require.NotNil(t, backend)
}
