package transform

import (
	"fmt"
	"sort"

	"github.com/guregu/null/v6"

	"github.com/kjannette/market-etl/internal/dataset"
	"github.com/kjannette/market-etl/internal/models"
)

var companyColumns = map[string]string{
	"Exchange":            "exchange",
	"Shortname":           "short_name",
	"Symbol":              "symbol",
	"Longname":            "long_name",
	"Sector":              "sector",
	"Industry":            "industry",
	"Currentprice":        "current_price",
	"Marketcap":           "market_cap",
	"Ebitda":              "ebitda",
	"Revenuegrowth":       "revenue_growth",
	"City":                "city",
	"State":               "state",
	"Country":             "country",
	"Fulltimeemployees":   "full_time_employees",
	"Longbusinesssummary": "long_business_summary",
	"Weight":              "weight",
}

// Companies renames the S&P 500 company profile columns, fills blanks with
// zero values and coerces market cap to float and head count to integer.
func Companies(path string) ([]models.Company, error) {
	frame, err := renamed(path, companyColumns)
	if err != nil {
		return nil, err
	}

	var out []models.Company
	err = frame.Each(func(r dataset.Row) error {
		c := models.Company{
			Exchange:        r.Get("exchange"),
			Symbol:          r.Get("symbol"),
			ShortName:       r.Get("short_name"),
			LongName:        r.Get("long_name"),
			Sector:          r.Get("sector"),
			Industry:        r.Get("industry"),
			City:            r.Get("city"),
			State:           r.Get("state"),
			Country:         r.Get("country"),
			BusinessSummary: r.Get("long_business_summary"),
		}
		if c.Symbol == "" {
			return fmt.Errorf("blank symbol")
		}
		var err error
		if c.CurrentPrice, err = parseFloat(r.Get("current_price")); err != nil {
			return fmt.Errorf("current_price: %w", err)
		}
		if c.MarketCap, err = parseFloat(r.Get("market_cap")); err != nil {
			return fmt.Errorf("market_cap: %w", err)
		}
		if c.EBITDA, err = parseFloat(r.Get("ebitda")); err != nil {
			return fmt.Errorf("ebitda: %w", err)
		}
		if c.RevenueGrowth, err = parseFloat(r.Get("revenue_growth")); err != nil {
			return fmt.Errorf("revenue_growth: %w", err)
		}
		if c.FullTimeEmployees, err = parseInt(r.Get("full_time_employees")); err != nil {
			return fmt.Errorf("full_time_employees: %w", err)
		}
		if c.Weight, err = parseFloat(r.Get("weight")); err != nil {
			return fmt.Errorf("weight: %w", err)
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var indexColumns = map[string]string{
	"Date":   "date",
	"S&P500": "index_value",
}

func Index(path string) ([]models.IndexPoint, error) {
	frame, err := renamed(path, indexColumns)
	if err != nil {
		return nil, err
	}

	var out []models.IndexPoint
	err = frame.Each(func(r dataset.Row) error {
		date, err := parseDate(r.Get("date"))
		if err != nil {
			return err
		}
		v, err := parseNullFloat(r.Get("index_value"))
		if err != nil {
			return fmt.Errorf("index_value: %w", err)
		}
		out = append(out, models.IndexPoint{Date: date, Value: v})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var stockColumns = map[string]string{
	"Date":      "date",
	"Symbol":    "symbol",
	"Adj Close": "adj_close",
	"Close":     "close",
	"High":      "high",
	"Low":       "low",
	"Open":      "open",
	"Volume":    "volume",
}

// Stocks renames the per-symbol OHLCV columns. Rows are kept as-is; blank
// prices (common before a listing date) become NULL.
func Stocks(path string) ([]models.StockPoint, error) {
	frame, err := renamed(path, stockColumns)
	if err != nil {
		return nil, err
	}

	var out []models.StockPoint
	err = frame.Each(func(r dataset.Row) error {
		date, err := parseDate(r.Get("date"))
		if err != nil {
			return err
		}
		p := models.StockPoint{Date: date, Symbol: r.Get("symbol")}
		for _, f := range []struct {
			col string
			dst *null.Float
		}{
			{"adj_close", &p.AdjClose},
			{"close", &p.Close},
			{"high", &p.High},
			{"low", &p.Low},
			{"open", &p.Open},
			{"volume", &p.Volume},
		} {
			if *f.dst, err = parseNullFloat(r.Get(f.col)); err != nil {
				return fmt.Errorf("%s: %w", f.col, err)
			}
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// renamed reads path and applies mapping, failing when any source column of
// the mapping is absent.
func renamed(path string, mapping map[string]string) (*dataset.Frame, error) {
	frame, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	src := make([]string, 0, len(mapping))
	for k := range mapping {
		src = append(src, k)
	}
	sort.Strings(src)
	if err := frame.Require(src...); err != nil {
		return nil, err
	}
	return frame.Rename(mapping), nil
}
