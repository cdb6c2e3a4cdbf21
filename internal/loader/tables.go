package loader

import (
	"log/slog"

	"github.com/kjannette/market-etl/internal/models"
)

var CompanyTable = Table[models.Company]{
	Name: "sp500_company",
	Columns: []string{
		"exchange", "symbol", "short_name", "long_name", "sector", "industry",
		"price", "market_cap", "ebitda", "revenue_growth",
		"city", "state", "country", "employees", "summary", "weight",
	},
	Key: []string{"symbol"},
	Args: func(c models.Company) []any {
		return []any{
			c.Exchange, c.Symbol, c.ShortName, c.LongName, c.Sector, c.Industry,
			c.CurrentPrice, c.MarketCap, c.EBITDA, c.RevenueGrowth,
			c.City, c.State, c.Country, c.FullTimeEmployees, c.BusinessSummary, c.Weight,
		}
	},
}

var IndexTable = Table[models.IndexPoint]{
	Name:    "sp500_index",
	Columns: []string{"date", "index_value"},
	Key:     []string{"date"},
	Args: func(p models.IndexPoint) []any {
		return []any{p.Date, p.Value}
	},
}

var StockTable = Table[models.StockPoint]{
	Name:    "sp500_stock",
	Columns: []string{"date", "symbol", "adj_close", "close", "high", "low", "open", "volume"},
	Args: func(p models.StockPoint) []any {
		return []any{p.Date, p.Symbol, p.AdjClose, p.Close, p.High, p.Low, p.Open, p.Volume}
	},
}

var CryptoTable = Table[models.CryptoRate]{
	Name:    "crypto_rate",
	Columns: []string{"timestamp", "target", "date", "currency", "rate", "daily_return"},
	Args: func(r models.CryptoRate) []any {
		return []any{r.Timestamp, r.Target, r.Date, r.Currency, r.Rate, r.DailyReturn}
	},
}

var MastercardTable = cardNetworkTable("mastercard_stock")

var VisaTable = cardNetworkTable("visa_stock")

func cardNetworkTable(name string) Table[models.CardNetworkPoint] {
	return Table[models.CardNetworkPoint]{
		Name:    name,
		Columns: []string{"date", "open", "high", "low", "close", "adjusted_close", "volume"},
		Key:     []string{"date"},
		Args: func(p models.CardNetworkPoint) []any {
			return []any{p.Date, p.Open, p.High, p.Low, p.Close, p.AdjClose, p.Volume}
		},
	}
}

var ArticleTable = Table[models.Article]{
	Name:    "articles",
	Columns: []string{"title", "link"},
	Args: func(a models.Article) []any {
		return []any{a.Title, a.Link}
	},
}

// Warehouse bundles one loader per destination table.
type Warehouse struct {
	Companies  *Loader[models.Company]
	Index      *Loader[models.IndexPoint]
	Stocks     *Loader[models.StockPoint]
	Crypto     *Loader[models.CryptoRate]
	Mastercard *Loader[models.CardNetworkPoint]
	Visa       *Loader[models.CardNetworkPoint]
	Articles   *Loader[models.Article]
}

func NewWarehouse(connect ConnectFunc, logger *slog.Logger) *Warehouse {
	return &Warehouse{
		Companies:  New(CompanyTable, connect, logger),
		Index:      New(IndexTable, connect, logger),
		Stocks:     New(StockTable, connect, logger),
		Crypto:     New(CryptoTable, connect, logger),
		Mastercard: New(MastercardTable, connect, logger),
		Visa:       New(VisaTable, connect, logger),
		Articles:   New(ArticleTable, connect, logger),
	}
}
