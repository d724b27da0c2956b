package mockapi

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"klinedash/internal/kline"
)

const dateLayout = "2006-01-02"

// Listing 是模拟市场中的一只股票。
type Listing struct {
	Code   string
	Name   string
	Listed string
	Base   float64
}

var defaultListings = []Listing{
	{Code: "600000.SH", Name: "浦发银行", Listed: "2010-01-04", Base: 20},
	{Code: "000001.SZ", Name: "平安银行", Listed: "2010-01-04", Base: 15},
	{Code: "600519.SH", Name: "贵州茅台", Listed: "2010-01-04", Base: 160},
	{Code: "000858.SZ", Name: "五粮液", Listed: "2010-01-04", Base: 30},
	{Code: "601318.SH", Name: "中国平安", Listed: "2010-01-04", Base: 40},
	{Code: "600036.SH", Name: "招商银行", Listed: "2010-01-04", Base: 12},
	{Code: "002594.SZ", Name: "比亚迪", Listed: "2011-06-30", Base: 18},
	{Code: "300750.SZ", Name: "宁德时代", Listed: "2018-06-11", Base: 25},
}

// Market 为每只股票生成确定的日线：同一种子和代码总得到同一条路径，
// 任意日期区间都是它的切片。
type Market struct {
	seed     int64
	asOf     time.Time
	listings []Listing

	mu    sync.Mutex
	daily map[string][]kline.Bar
}

func NewMarket(seed int64, asOf time.Time) *Market {
	return &Market{
		seed:     seed,
		asOf:     asOf,
		listings: defaultListings,
		daily:    make(map[string][]kline.Bar),
	}
}

func (m *Market) Listings() []Listing {
	return append([]Listing(nil), m.listings...)
}

func (m *Market) Lookup(code string) (Listing, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, l := range m.listings {
		if l.Code == code {
			return l, true
		}
	}
	return Listing{}, false
}

// Search 按代码或名称匹配 keyword。
func (m *Market) Search(keyword string, limit int) []Listing {
	keyword = strings.ToUpper(strings.TrimSpace(keyword))
	out := make([]Listing, 0, len(m.listings))
	for _, l := range m.listings {
		if keyword == "" || strings.Contains(l.Code, keyword) || strings.Contains(l.Name, keyword) {
			out = append(out, l)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Daily 返回 l 从上市日到 asOf 的不复权日线。
func (m *Market) Daily(l Listing) []kline.Bar {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bars, ok := m.daily[l.Code]; ok {
		return bars
	}
	bars := m.generate(l)
	m.daily[l.Code] = bars
	return bars
}

func (m *Market) seedFor(code string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(code))
	return m.seed ^ int64(h.Sum64()&math.MaxInt64)
}

func (m *Market) generate(l Listing) []kline.Bar {
	start, err := time.Parse(dateLayout, l.Listed)
	if err != nil {
		return nil
	}
	rng := rand.New(rand.NewSource(m.seedFor(l.Code)))
	price := l.Base
	var bars []kline.Bar
	for d := start; !d.After(m.asOf); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		ret := clamp(rng.NormFloat64()*0.02+0.0003, -0.1, 0.1)
		open := price * (1 + clamp(rng.NormFloat64()*0.005, -0.03, 0.03))
		closeP := math.Max(price*(1+ret), 0.01)
		high := math.Max(open, closeP) * (1 + math.Abs(rng.NormFloat64())*0.008)
		low := math.Min(open, closeP) * (1 - math.Abs(rng.NormFloat64())*0.008)
		volume := int64(50_000 + rng.Intn(950_000))
		bars = append(bars, kline.Bar{
			Date:   d.Format(dateLayout),
			Open:   price2(open),
			Close:  price2(closeP),
			High:   price2(high),
			Low:    price2(low),
			Volume: volume,
			Amount: price2(closeP * float64(volume)),
		})
		price = closeP
	}
	return bars
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

func price2(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(2) }

// Between 按日期字符串截取 [start, end] 区间。
func Between(bars []kline.Bar, start, end string) []kline.Bar {
	lo := sort.Search(len(bars), func(i int) bool { return bars[i].Date >= start })
	hi := sort.Search(len(bars), func(i int) bool { return bars[i].Date > end })
	if lo >= hi {
		return []kline.Bar{}
	}
	return bars[lo:hi]
}

// adjFactor 每个自然年分红一次，因子上调 2%。
func adjFactor(date, listed string) decimal.Decimal {
	years := 0
	if len(date) >= 4 && len(listed) >= 4 {
		y1, y0 := atoi(date[:4]), atoi(listed[:4])
		years = y1 - y0
	}
	return decimal.NewFromFloat(math.Pow(1.02, float64(years)))
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Adjust 做前复权（before）或后复权（after）。前复权以全部历史的最新一根为基准。
func Adjust(bars []kline.Bar, adj kline.AdjType, listed, latest string) []kline.Bar {
	if adj == kline.AdjNone || adj == "" || len(bars) == 0 {
		return bars
	}
	out := make([]kline.Bar, len(bars))
	anchor := adjFactor(latest, listed)
	for i, b := range bars {
		f := adjFactor(b.Date, listed)
		if adj == kline.AdjBefore {
			f = f.Div(anchor)
		}
		b.Open = b.Open.Mul(f).Round(2)
		b.Close = b.Close.Mul(f).Round(2)
		b.High = b.High.Mul(f).Round(2)
		b.Low = b.Low.Mul(f).Round(2)
		out[i] = b
	}
	return out
}

// Aggregate 把日线合成周/月/年线，日期取区间最后一个交易日。
func Aggregate(bars []kline.Bar, p kline.Period) []kline.Bar {
	if p == kline.PeriodDay || p == "" {
		return bars
	}
	var out []kline.Bar
	var key string
	for _, b := range bars {
		k := bucket(b.Date, p)
		if len(out) == 0 || k != key {
			out = append(out, b)
			key = k
			continue
		}
		last := &out[len(out)-1]
		last.Date = b.Date
		last.Close = b.Close
		last.High = decimal.Max(last.High, b.High)
		last.Low = decimal.Min(last.Low, b.Low)
		last.Volume += b.Volume
		last.Amount = last.Amount.Add(b.Amount)
	}
	return out
}

func bucket(date string, p kline.Period) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	switch p {
	case kline.PeriodWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case kline.PeriodMonth:
		return t.Format("2006-01")
	case kline.PeriodYear:
		return t.Format("2006")
	default:
		return date
	}
}

// Minute 把一根日线拆成 A 股交易时段的 240 根一分钟线，再按 interval 合并。
func (m *Market) Minute(l Listing, day kline.Bar, interval int) []kline.Bar {
	if interval <= 0 {
		interval = 1
	}
	d, err := time.Parse(dateLayout, day.Date)
	if err != nil {
		return nil
	}
	rng := rand.New(rand.NewSource(m.seedFor(l.Code + day.Date)))
	open := day.Open.InexactFloat64()
	closeP := day.Close.InexactFloat64()
	lo, hi := day.Low.InexactFloat64(), day.High.InexactFloat64()
	const n = 240
	slots := make([]time.Time, 0, n)
	for t := d.Add(9*time.Hour + 31*time.Minute); len(slots) < 120; t = t.Add(time.Minute) {
		slots = append(slots, t)
	}
	for t := d.Add(13*time.Hour + 1*time.Minute); len(slots) < n; t = t.Add(time.Minute) {
		slots = append(slots, t)
	}
	perMinute := day.Volume / n
	prev := open
	out := make([]kline.Bar, 0, n/interval+1)
	for i, ts := range slots {
		target := open + (closeP-open)*float64(i+1)/n
		px := clamp(target+rng.NormFloat64()*(hi-lo)*0.02, lo, hi)
		if i == n-1 {
			px = closeP
		}
		bar := kline.Bar{
			Date:   ts.Format("2006-01-02 15:04"),
			Open:   price2(prev),
			Close:  price2(px),
			High:   price2(math.Max(prev, px)),
			Low:    price2(math.Min(prev, px)),
			Volume: perMinute,
			Amount: price2(px * float64(perMinute)),
		}
		prev = px
		if i%interval == 0 {
			out = append(out, bar)
			continue
		}
		last := &out[len(out)-1]
		last.Date = bar.Date
		last.Close = bar.Close
		last.High = decimal.Max(last.High, bar.High)
		last.Low = decimal.Min(last.Low, bar.Low)
		last.Volume += bar.Volume
		last.Amount = last.Amount.Add(bar.Amount)
	}
	return out
}
