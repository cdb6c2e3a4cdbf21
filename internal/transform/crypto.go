package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kjannette/market-etl/internal/dataset"
	"github.com/kjannette/market-etl/internal/models"
)

var (
	cryptoRequired = []string{"success", "timestamp", "target", "date"}

	// Metadata carried by the rates API that never becomes a currency row.
	cryptoDropped = map[string]bool{"terms": true, "privacy": true, "historical": true}
)

// Crypto unpivots the wide rates file into one row per (date, currency),
// keeps successful queries only, and derives daily_return from the previous
// row in date order. The first row has no predecessor and is dropped, as is
// any row following a zero rate.
func Crypto(path string) ([]models.CryptoRate, error) {
	frame, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if err := frame.Require(cryptoRequired...); err != nil {
		return nil, err
	}

	var currencies []string
	for _, c := range frame.Columns {
		if isCryptoMeta(c) {
			continue
		}
		currencies = append(currencies, c)
	}
	if len(currencies) == 0 {
		return nil, fmt.Errorf("%w: no currency columns", dataset.ErrMissingColumn)
	}

	var rates []models.CryptoRate
	err = frame.Each(func(r dataset.Row) error {
		ok, err := parseBool(r.Get("success"))
		if err != nil {
			return fmt.Errorf("success: %w", err)
		}
		if !ok {
			return nil
		}
		ts, err := parseEpoch(r.Get("timestamp"))
		if err != nil {
			return err
		}
		date, err := parseDate(r.Get("date"))
		if err != nil {
			return err
		}
		for _, col := range currencies {
			raw := r.Get(col)
			if raw == "" {
				continue
			}
			rate, err := parseFloat(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", col, err)
			}
			rates = append(rates, models.CryptoRate{
				Timestamp: ts,
				Target:    r.Get("target"),
				Date:      date,
				Currency:  currencyCode(col),
				Rate:      rate,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].Date.Before(rates[j].Date)
	})
	return withDailyReturn(rates), nil
}

// withDailyReturn sets DailyReturn to the fractional change from the previous
// row and drops rows where that change is undefined.
func withDailyReturn(sorted []models.CryptoRate) []models.CryptoRate {
	out := make([]models.CryptoRate, 0, len(sorted))
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1].Rate
		if prev == 0 {
			continue
		}
		r := sorted[i]
		r.DailyReturn = (r.Rate - prev) / prev
		out = append(out, r)
	}
	return out
}

func isCryptoMeta(col string) bool {
	for _, c := range cryptoRequired {
		if c == col {
			return true
		}
	}
	return cryptoDropped[col]
}

// currencyCode strips the flattening prefix, so "rates.EUR" becomes "EUR".
func currencyCode(col string) string {
	if i := strings.LastIndex(col, "."); i >= 0 {
		return col[i+1:]
	}
	return col
}
