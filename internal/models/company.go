package models

import "strconv"

type Company struct {
	Exchange          string  `json:"exchange"`
	Symbol            string  `json:"symbol"`
	ShortName         string  `json:"shortName"`
	LongName          string  `json:"longName"`
	Sector            string  `json:"sector"`
	Industry          string  `json:"industry"`
	CurrentPrice      float64 `json:"currentPrice"`
	MarketCap         float64 `json:"marketCap"`
	EBITDA            float64 `json:"ebitda"`
	RevenueGrowth     float64 `json:"revenueGrowth"`
	City              string  `json:"city"`
	State             string  `json:"state"`
	Country           string  `json:"country"`
	FullTimeEmployees int64   `json:"fullTimeEmployees"`
	BusinessSummary   string  `json:"businessSummary"`
	Weight            float64 `json:"weight"`
}

func (Company) Header() []string {
	return []string{
		"exchange", "symbol", "short_name", "long_name", "sector", "industry",
		"current_price", "market_cap", "ebitda", "revenue_growth",
		"city", "state", "country", "full_time_employees", "long_business_summary", "weight",
	}
}

func (c Company) Record() []string {
	return []string{
		c.Exchange, c.Symbol, c.ShortName, c.LongName, c.Sector, c.Industry,
		formatFloat(c.CurrentPrice), formatFloat(c.MarketCap), formatFloat(c.EBITDA), formatFloat(c.RevenueGrowth),
		c.City, c.State, c.Country, strconv.FormatInt(c.FullTimeEmployees, 10), c.BusinessSummary, formatFloat(c.Weight),
	}
}

// Article is a scraped headline. There is no natural key; reloads append.
type Article struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

func (Article) Header() []string {
	return []string{"title", "link"}
}

func (a Article) Record() []string {
	return []string{a.Title, a.Link}
}
