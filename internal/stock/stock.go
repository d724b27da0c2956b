// Package stock wraps the stock catalog endpoints.
package stock

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"klinedash/internal/apiclient"
	"klinedash/internal/kline"
)

const (
	pathList      = "/stocks/list"
	pathDateRange = "/stocks/date-range"

	DefaultLimit = 50
	MaxLimit     = 100
)

// Stock is one list item; Records counts its stored daily bars.
type Stock struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Records int    `json:"records"`
}

func (s Stock) Info() kline.StockInfo {
	return kline.StockInfo{Code: s.Code, Name: s.Name}
}

type Page struct {
	Items []Stock `json:"items"`
	Total int     `json:"total"`
}

// DateRange is the first and last queryable trade day of a stock.
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type Catalog struct {
	api kline.API
}

func NewCatalog(api kline.API) *Catalog {
	return &Catalog{api: api}
}

// List searches by code or name. limit <= 0 means DefaultLimit; larger than
// MaxLimit is clamped.
func (c *Catalog) List(ctx context.Context, keyword string, limit int) (Page, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if kw := strings.TrimSpace(keyword); kw != "" {
		query.Set("keyword", kw)
	}
	var page Page
	if err := c.api.Get(ctx, pathList, query, &page); err != nil {
		return Page{}, err
	}
	if page.Items == nil {
		page.Items = []Stock{}
	}
	return page, nil
}

func (c *Catalog) DateRange(ctx context.Context, code string) (DateRange, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return DateRange{}, apiclient.ConfigError(pathDateRange, kline.ErrCodeRequired)
	}
	var out DateRange
	if err := c.api.Get(ctx, pathDateRange, url.Values{"code": {code}}, &out); err != nil {
		return DateRange{}, err
	}
	if out.StartDate == "" || out.EndDate == "" {
		return DateRange{}, &apiclient.Error{
			Kind:    apiclient.KindServer,
			Path:    pathDateRange,
			Message: "empty date range",
			Err:     errors.New("stock has no data"),
		}
	}
	return out, nil
}
