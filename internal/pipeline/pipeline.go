// Package pipeline declares the daily finance DAG: six extract/transform/load
// chains over crypto rates, scraped headlines, S&P 500 companies, the index,
// constituent stock prices and the Mastercard/Visa price file.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/kjannette/market-etl/internal/config"
	"github.com/kjannette/market-etl/internal/dag"
	"github.com/kjannette/market-etl/internal/dataset"
	"github.com/kjannette/market-etl/internal/loader"
	"github.com/kjannette/market-etl/internal/models"
	"github.com/kjannette/market-etl/internal/transform"
)

// Task ids.
const (
	ExtractCrypto   = "extract_crypto_data"
	ProcessCrypto   = "process_crypto_data"
	LoadCrypto      = "load_crypto_data"
	ExtractArticles = "extract_articles"
	ProcessArticles = "process_scraped_articles"
	LoadArticles    = "load_scraped_articles"
	ProcessSP500    = "process_sp500_data"
	LoadSP500       = "load_sp500_company_data"
	ProcessIndex    = "process_sp500_index_data"
	LoadIndex       = "load_sp500_index_data"
	ProcessStocks   = "process_sp500_stock_data"
	LoadStocks      = "load_sp500_stock_data"
	ProcessMVR      = "process_mvr_data"
	LoadMastercard  = "load_mastercard_data"
	LoadVisa        = "load_visa_data"
)

// Transformed dataset file names under TRANSFORMED_DATA_DIR.
const (
	cryptoOut     = "crypto_transformed.csv"
	articlesOut   = "articles_transformed.csv"
	companiesOut  = "sp500_companies_transformed.csv"
	indexOut      = "sp500_index_transformed.csv"
	stocksOut     = "sp500_stocks_transformed.csv"
	mastercardOut = "mastercard_transformed.csv"
	visaOut       = "visa_transformed.csv"
)

type Extractor interface {
	FetchAPIDataset(ctx context.Context, endpoint string) (*dataset.Frame, error)
	ScrapeHeadlines(ctx context.Context, pageURL string) (*dataset.Frame, error)
}

// Sink receives a transformed dataset. *loader.Loader satisfies it.
type Sink[T any] interface {
	Load(ctx context.Context, rows []T) (int64, error)
}

type Deps struct {
	Extractor  Extractor
	Companies  Sink[models.Company]
	Index      Sink[models.IndexPoint]
	Stocks     Sink[models.StockPoint]
	Crypto     Sink[models.CryptoRate]
	Mastercard Sink[models.CardNetworkPoint]
	Visa       Sink[models.CardNetworkPoint]
	Articles   Sink[models.Article]
}

// WarehouseDeps wires the PostgreSQL loaders as sinks.
func WarehouseDeps(ex Extractor, w *loader.Warehouse) Deps {
	return Deps{
		Extractor:  ex,
		Companies:  w.Companies,
		Index:      w.Index,
		Stocks:     w.Stocks,
		Crypto:     w.Crypto,
		Mastercard: w.Mastercard,
		Visa:       w.Visa,
		Articles:   w.Articles,
	}
}

// Build declares every task and dependency of the pipeline.
func Build(cfg *config.Config, deps Deps, logger *slog.Logger) *dag.Graph {
	if logger == nil {
		logger = slog.Default()
	}
	b := &builder{
		cfg:      cfg,
		failFast: cfg.FailPolicy == config.FailFast,
		logger:   logger.With("component", "pipeline"),
	}

	g := dag.New(cfg.PipelineName)

	// Crypto rates: API → wide CSV → one row per (date, currency).
	g.Add(ExtractCrypto, b.extract(func(ctx context.Context) (*dataset.Frame, error) {
		return deps.Extractor.FetchAPIDataset(ctx, cfg.CryptoAPIEndpoint)
	}))
	g.Add(ProcessCrypto, process(b, cfg.CryptoFile, cryptoOut, transform.Crypto))
	g.Add(LoadCrypto, load(b, ProcessCrypto, identity[models.CryptoRate], deps.Crypto))
	g.Chain(ExtractCrypto, ProcessCrypto, LoadCrypto)

	// Headlines.
	g.Add(ExtractArticles, b.extract(func(ctx context.Context) (*dataset.Frame, error) {
		return deps.Extractor.ScrapeHeadlines(ctx, cfg.ArticlesLink)
	}))
	g.Add(ProcessArticles, process(b, cfg.ArticlesFile, articlesOut, transform.Articles))
	g.Add(LoadArticles, load(b, ProcessArticles, identity[models.Article], deps.Articles))
	g.Chain(ExtractArticles, ProcessArticles, LoadArticles)

	// S&P 500 static files.
	g.Add(ProcessSP500, process(b, cfg.SP500File, companiesOut, transform.Companies))
	g.Add(LoadSP500, load(b, ProcessSP500, identity[models.Company], deps.Companies))
	g.Chain(ProcessSP500, LoadSP500)

	g.Add(ProcessIndex, process(b, cfg.SP500IndexFile, indexOut, transform.Index))
	g.Add(LoadIndex, load(b, ProcessIndex, identity[models.IndexPoint], deps.Index))
	g.Chain(ProcessIndex, LoadIndex)

	g.Add(ProcessStocks, process(b, cfg.SP500StocksFile, stocksOut, transform.Stocks))
	g.Add(LoadStocks, load(b, ProcessStocks, identity[models.StockPoint], deps.Stocks))
	g.Chain(ProcessStocks, LoadStocks)

	// Card networks: one file, two tables.
	g.Add(ProcessMVR, b.processCardNetwork())
	g.Add(LoadMastercard, load(b, ProcessMVR, mastercard, deps.Mastercard))
	g.Add(LoadVisa, load(b, ProcessMVR, visa, deps.Visa))
	g.FanOut(ProcessMVR, LoadMastercard, LoadVisa)

	return g
}

func identity[T any](rows []T) []T { return rows }

func mastercard(s models.CardNetworkSplit) []models.CardNetworkPoint { return s.Mastercard }

func visa(s models.CardNetworkSplit) []models.CardNetworkPoint { return s.Visa }
