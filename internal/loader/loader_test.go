package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/market-etl/internal/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func companies() []models.Company {
	return []models.Company{
		{Exchange: "NMS", Symbol: "AAPL", MarketCap: 3.8e12, FullTimeEmployees: 164000},
		{Exchange: "NMS", Symbol: "MSFT", MarketCap: 3.1e12, FullTimeEmployees: 228000},
		{Exchange: "NYQ", Symbol: "JPM", MarketCap: 6.8e11, FullTimeEmployees: 316043},
	}
}

func TestInsertSQL(t *testing.T) {
	require.Equal(t,
		"INSERT INTO sp500_index (date, index_value) VALUES ($1, $2) ON CONFLICT (date) DO NOTHING",
		IndexTable.InsertSQL())
	require.Equal(t,
		"INSERT INTO articles (title, link) VALUES ($1, $2)",
		ArticleTable.InsertSQL())
	require.Contains(t, CompanyTable.InsertSQL(), "ON CONFLICT (symbol) DO NOTHING")
	require.NotContains(t, StockTable.InsertSQL(), "ON CONFLICT")
	require.NotContains(t, CryptoTable.InsertSQL(), "ON CONFLICT")
	require.Contains(t, VisaTable.InsertSQL(), "INSERT INTO visa_stock")
	require.Contains(t, MastercardTable.InsertSQL(), "INSERT INTO mastercard_stock")
}

func TestTableArgsMatchColumns(t *testing.T) {
	require.Len(t, CompanyTable.Args(models.Company{}), len(CompanyTable.Columns))
	require.Len(t, IndexTable.Args(models.IndexPoint{}), len(IndexTable.Columns))
	require.Len(t, StockTable.Args(models.StockPoint{}), len(StockTable.Columns))
	require.Len(t, CryptoTable.Args(models.CryptoRate{}), len(CryptoTable.Columns))
	require.Len(t, VisaTable.Args(models.CardNetworkPoint{}), len(VisaTable.Columns))
	require.Len(t, ArticleTable.Args(models.Article{}), len(ArticleTable.Columns))
}

func TestLoad_EmptyDatasetOpensNoConnection(t *testing.T) {
	fdb := newFakeDB()
	l := New(CompanyTable, fdb.connect, quiet)

	n, err := l.Load(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, fdb.opens)
}

func TestLoad_CommitsOnceAndCloses(t *testing.T) {
	fdb := newFakeDB()
	l := New(CompanyTable, fdb.connect, quiet)

	n, err := l.Load(context.Background(), companies())
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, 3, fdb.count("sp500_company"))
	require.Equal(t, 1, fdb.opens)
	require.Equal(t, 1, fdb.closes)
}

func TestLoad_CompanyReloadIsIdempotent(t *testing.T) {
	fdb := newFakeDB()
	l := New(CompanyTable, fdb.connect, quiet)
	ctx := context.Background()

	_, err := l.Load(ctx, companies())
	require.NoError(t, err)
	n, err := l.Load(ctx, companies())
	require.NoError(t, err)
	require.Zero(t, n, "second load should skip every row")
	require.Equal(t, 3, fdb.count("sp500_company"))
}

func TestLoad_IndexReloadIsIdempotent(t *testing.T) {
	fdb := newFakeDB()
	l := New(IndexTable, fdb.connect, quiet)
	ctx := context.Background()
	points := []models.IndexPoint{
		{Date: day("2024-01-02"), Value: null.FloatFrom(4742.83)},
		{Date: day("2024-01-03"), Value: null.FloatFrom(4704.81)},
		{Date: day("2024-01-03"), Value: null.FloatFrom(4704.81)},
	}

	n, err := l.Load(ctx, points)
	require.NoError(t, err)
	require.Equal(t, int64(2), n, "duplicate key within a batch is skipped too")

	_, err = l.Load(ctx, points)
	require.NoError(t, err)
	require.Equal(t, 2, fdb.count("sp500_index"))
}

func TestLoad_AppendOnlyTablesDuplicateOnRerun(t *testing.T) {
	fdb := newFakeDB()
	l := New(ArticleTable, fdb.connect, quiet)
	ctx := context.Background()
	articles := []models.Article{{Title: "Fed holds rates", Link: "/news/fed"}}

	_, err := l.Load(ctx, articles)
	require.NoError(t, err)
	_, err = l.Load(ctx, articles)
	require.NoError(t, err)
	require.Equal(t, 2, fdb.count("articles"))
}

func TestLoad_ExecErrorRollsBackAndCloses(t *testing.T) {
	fdb := newFakeDB()
	fdb.failExecAt = 2
	l := New(CompanyTable, fdb.connect, quiet)

	n, err := l.Load(context.Background(), companies())
	require.Error(t, err)
	require.Contains(t, err.Error(), "sp500_company: row 2")
	require.Zero(t, n)
	require.Zero(t, fdb.count("sp500_company"), "nothing committed")
	require.Equal(t, 1, fdb.closes)
}

func TestLoad_ConnectError(t *testing.T) {
	fdb := newFakeDB()
	fdb.connectErr = errors.New("connection refused")
	l := New(CryptoTable, fdb.connect, quiet)

	_, err := l.Load(context.Background(), []models.CryptoRate{{Currency: "BTC"}})
	require.ErrorContains(t, err, "connection refused")
	require.Zero(t, fdb.closes)
}

func TestLoad_CommitErrorCloses(t *testing.T) {
	fdb := newFakeDB()
	fdb.commitErr = errors.New("serialization failure")
	l := New(ArticleTable, fdb.connect, quiet)

	_, err := l.Load(context.Background(), []models.Article{{Title: "t", Link: "l"}})
	require.ErrorContains(t, err, "commit")
	require.Equal(t, 1, fdb.closes)
	require.Zero(t, fdb.count("articles"))
}

func TestNewWarehouse(t *testing.T) {
	w := NewWarehouse(newFakeDB().connect, quiet)
	require.Equal(t, "sp500_company", w.Companies.Table())
	require.Equal(t, "mastercard_stock", w.Mastercard.Table())
	require.Equal(t, "visa_stock", w.Visa.Table())
	require.Equal(t, "articles", w.Articles.Table())
}
