package models

import (
	"strconv"
	"time"

	"github.com/guregu/null/v6"
)

const dateLayout = "2006-01-02"

// CryptoRate is one (date, quote currency) observation of a historical rates query.
type CryptoRate struct {
	Timestamp   time.Time `json:"timestamp"`
	Target      string    `json:"target"`
	Date        time.Time `json:"date"`
	Currency    string    `json:"currency"`
	Rate        float64   `json:"rate"`
	DailyReturn float64   `json:"dailyReturn"`
}

func (CryptoRate) Header() []string {
	return []string{"timestamp", "target", "date", "currency", "rate", "daily_return"}
}

func (r CryptoRate) Record() []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Target,
		r.Date.Format(dateLayout),
		r.Currency,
		formatFloat(r.Rate),
		formatFloat(r.DailyReturn),
	}
}

type IndexPoint struct {
	Date  time.Time  `json:"date"`
	Value null.Float `json:"indexValue"`
}

func (IndexPoint) Header() []string {
	return []string{"date", "index_value"}
}

func (p IndexPoint) Record() []string {
	return []string{p.Date.Format(dateLayout), formatNull(p.Value)}
}

// StockPoint is one daily OHLCV bar for a single S&P 500 constituent.
type StockPoint struct {
	Date     time.Time  `json:"date"`
	Symbol   string     `json:"symbol"`
	AdjClose null.Float `json:"adjClose"`
	Close    null.Float `json:"close"`
	High     null.Float `json:"high"`
	Low      null.Float `json:"low"`
	Open     null.Float `json:"open"`
	Volume   null.Float `json:"volume"`
}

func (StockPoint) Header() []string {
	return []string{"date", "symbol", "adj_close", "close", "high", "low", "open", "volume"}
}

func (p StockPoint) Record() []string {
	return []string{
		p.Date.Format(dateLayout),
		p.Symbol,
		formatNull(p.AdjClose),
		formatNull(p.Close),
		formatNull(p.High),
		formatNull(p.Low),
		formatNull(p.Open),
		formatNull(p.Volume),
	}
}

const (
	CompanyMastercard = "Mastercard"
	CompanyVisa       = "Visa"
)

// CardNetworkPoint is one daily bar of a card network series, tagged with its company.
type CardNetworkPoint struct {
	Date     time.Time  `json:"date"`
	Company  string     `json:"company"`
	Open     null.Float `json:"open"`
	High     null.Float `json:"high"`
	Low      null.Float `json:"low"`
	Close    null.Float `json:"close"`
	AdjClose null.Float `json:"adjustedClose"`
	Volume   null.Float `json:"volume"`
}

func (CardNetworkPoint) Header() []string {
	return []string{"date", "open", "high", "low", "close", "adjusted_close", "volume", "company"}
}

func (p CardNetworkPoint) Record() []string {
	return []string{
		p.Date.Format(dateLayout),
		formatNull(p.Open),
		formatNull(p.High),
		formatNull(p.Low),
		formatNull(p.Close),
		formatNull(p.AdjClose),
		formatNull(p.Volume),
		p.Company,
	}
}

// CardNetworkSplit holds the two series carved out of the merged Mastercard/Visa file.
// Both halves share the same date axis.
type CardNetworkSplit struct {
	Mastercard []CardNetworkPoint
	Visa       []CardNetworkPoint
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatNull(f null.Float) string {
	if !f.Valid {
		return ""
	}
	return formatFloat(f.Float64)
}
