package transform

import (
	"fmt"

	"github.com/kjannette/market-etl/internal/dataset"
	"github.com/kjannette/market-etl/internal/models"
)

var cardNetworkColumns = map[string]string{
	"Date":        "date",
	"Open_M":      "mastercard_open",
	"High_M":      "mastercard_high",
	"Low_M":       "mastercard_low",
	"Close_M":     "mastercard_close",
	"Adj Close_M": "mastercard_adjusted_close",
	"Volume_M":    "mastercard_volume",
	"Open_V":      "visa_open",
	"High_V":      "visa_high",
	"Low_V":       "visa_low",
	"Close_V":     "visa_close",
	"Adj Close_V": "visa_adjusted_close",
	"Volume_V":    "visa_volume",
}

// CardNetwork splits the merged Mastercard/Visa file into one series per
// company. Both series are cut from the same rows, so they always have the
// same length and the same dates.
func CardNetwork(path string) (models.CardNetworkSplit, error) {
	frame, err := renamed(path, cardNetworkColumns)
	if err != nil {
		return models.CardNetworkSplit{}, err
	}

	mastercard, err := companySeries(frame, "mastercard_", models.CompanyMastercard)
	if err != nil {
		return models.CardNetworkSplit{}, err
	}
	visa, err := companySeries(frame, "visa_", models.CompanyVisa)
	if err != nil {
		return models.CardNetworkSplit{}, err
	}
	return models.CardNetworkSplit{Mastercard: mastercard, Visa: visa}, nil
}

func companySeries(merged *dataset.Frame, prefix, company string) ([]models.CardNetworkPoint, error) {
	sub, err := merged.SelectPrefix(prefix, "date")
	if err != nil {
		return nil, err
	}
	sub = sub.WithConstant("company", company)

	var out []models.CardNetworkPoint
	err = sub.Each(func(r dataset.Row) error {
		date, err := parseDate(r.Get("date"))
		if err != nil {
			return err
		}
		p := models.CardNetworkPoint{Date: date, Company: r.Get("company")}
		if p.Open, err = parseNullFloat(r.Get("open")); err != nil {
			return fmt.Errorf("%sopen: %w", prefix, err)
		}
		if p.High, err = parseNullFloat(r.Get("high")); err != nil {
			return fmt.Errorf("%shigh: %w", prefix, err)
		}
		if p.Low, err = parseNullFloat(r.Get("low")); err != nil {
			return fmt.Errorf("%slow: %w", prefix, err)
		}
		if p.Close, err = parseNullFloat(r.Get("close")); err != nil {
			return fmt.Errorf("%sclose: %w", prefix, err)
		}
		if p.AdjClose, err = parseNullFloat(r.Get("adjusted_close")); err != nil {
			return fmt.Errorf("%sadjusted_close: %w", prefix, err)
		}
		if p.Volume, err = parseNullFloat(r.Get("volume")); err != nil {
			return fmt.Errorf("%svolume: %w", prefix, err)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", company, err)
	}
	return out, nil
}
