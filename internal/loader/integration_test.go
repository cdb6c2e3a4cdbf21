package loader_test

import (
	"context"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/market-etl/internal/loader"
	"github.com/kjannette/market-etl/internal/models"
	"github.com/kjannette/market-etl/internal/testutil"
)

func TestWarehouse_ReloadAgainstPostgres(t *testing.T) {
	c := testutil.SetupConnector(t)
	testutil.Truncate(t, c, "sp500_company", "sp500_index", "articles")

	w := loader.NewWarehouse(loader.FromConnector(c), testutil.Logger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	companies := []models.Company{
		{Exchange: "NMS", Symbol: "AAPL", MarketCap: 3.8e12},
		{Exchange: "NMS", Symbol: "MSFT", MarketCap: 3.1e12},
	}
	index := []models.IndexPoint{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Value: null.FloatFrom(4742.83)},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Value: null.Float{}},
	}
	articles := []models.Article{{Title: "Markets rally", Link: "https://example.com/a"}}

	for pass := 1; pass <= 2; pass++ {
		_, err := w.Companies.Load(ctx, companies)
		require.NoError(t, err)
		_, err = w.Index.Load(ctx, index)
		require.NoError(t, err)
		_, err = w.Articles.Load(ctx, articles)
		require.NoError(t, err)
	}

	require.Equal(t, 2, testutil.Count(t, c, "sp500_company"))
	require.Equal(t, 2, testutil.Count(t, c, "sp500_index"))
	require.Equal(t, 2, testutil.Count(t, c, "articles"), "articles are append-only")
}
