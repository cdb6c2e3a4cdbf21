package transform

import (
	"github.com/kjannette/market-etl/internal/dataset"
	"github.com/kjannette/market-etl/internal/models"
)

var articleColumns = map[string]string{
	"Title": "title",
	"Link":  "link",
}

func Articles(path string) ([]models.Article, error) {
	frame, err := renamed(path, articleColumns)
	if err != nil {
		return nil, err
	}

	var out []models.Article
	_ = frame.Each(func(r dataset.Row) error {
		out = append(out, models.Article{Title: r.Get("title"), Link: r.Get("link")})
		return nil
	})
	return out, nil
}
