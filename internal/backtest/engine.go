package backtest

import (
	"fmt"
	"math"

	"klinedash/internal/kline"
)

// EngineConfig holds A-share fees: 0.03% commission (min 5), plus 0.1%
// stamp duty on sells.
type EngineConfig struct {
	CommissionRate float64
	TaxRate        float64
	MinCommission  float64
	LotSize        int64
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{CommissionRate: 0.0003, TaxRate: 0.001, MinCommission: 5, LotSize: 100}
}

type position struct {
	shares   int64
	avgPrice float64
	cost     float64
	price    float64
}

func (p position) info(code, name string) PositionInfo {
	mv := float64(p.shares) * p.price
	profit := mv - p.cost
	pct := 0.0
	if p.cost > 0 {
		pct = profit / p.cost * 100
	}
	return PositionInfo{
		Code: code, Name: name, Shares: p.shares,
		AvgPrice: p.avgPrice, CurrentPrice: p.price,
		MarketValue: mv, Cost: p.cost, Profit: profit, ProfitPct: pct,
	}
}

// Engine backtests one stock on daily bars, all in and all out.
type Engine struct {
	cfg   EngineConfig
	stock kline.StockInfo

	cash   float64
	pos    *position
	trades []TradeRecord
	daily  []DailyPosition
}

func NewEngine(cfg EngineConfig, stock kline.StockInfo, capital float64) *Engine {
	if cfg.LotSize <= 0 {
		cfg.LotSize = 100
	}
	return &Engine{cfg: cfg, stock: stock, cash: capital}
}

func (e *Engine) commission(amount float64, sell bool) float64 {
	c := math.Max(amount*e.cfg.CommissionRate, e.cfg.MinCommission)
	if sell {
		c += amount * e.cfg.TaxRate
	}
	return c
}

func (e *Engine) lots(shares int64) int64 {
	return shares / e.cfg.LotSize * e.cfg.LotSize
}

// Buy opens or adds to the position; false when cash is short or the lot rounds to zero.
func (e *Engine) Buy(date string, price float64, shares int64, reason string) bool {
	shares = e.lots(shares)
	if shares <= 0 || price <= 0 {
		return false
	}
	amount := price * float64(shares)
	fee := e.commission(amount, false)
	if amount+fee > e.cash {
		return false
	}
	e.cash -= amount + fee
	if e.pos == nil {
		e.pos = &position{shares: shares, avgPrice: price, cost: amount, price: price}
	} else {
		e.pos.shares += shares
		e.pos.cost += amount
		e.pos.avgPrice = e.pos.cost / float64(e.pos.shares)
	}
	e.record(date, ActionBuy, price, shares, amount, fee, reason)
	return true
}

// Sell closes shares (all when shares <= 0).
func (e *Engine) Sell(date string, price float64, shares int64, reason string) bool {
	if e.pos == nil {
		return false
	}
	if shares <= 0 {
		shares = e.pos.shares
	}
	shares = e.lots(shares)
	if shares <= 0 || shares > e.pos.shares {
		return false
	}
	amount := price * float64(shares)
	fee := e.commission(amount, true)
	e.cash += amount - fee
	if shares == e.pos.shares {
		e.pos = nil
	} else {
		e.pos.shares -= shares
		e.pos.cost = e.pos.avgPrice * float64(e.pos.shares)
	}
	e.record(date, ActionSell, price, shares, amount, fee, reason)
	return true
}

func (e *Engine) record(date, action string, price float64, shares int64, amount, fee float64, reason string) {
	e.trades = append(e.trades, TradeRecord{
		Date: date, Code: e.stock.Code, Name: e.stock.Name, Action: action,
		Price: price, Shares: shares, Amount: amount, Commission: fee, Reason: reason,
	})
}

func (e *Engine) Mark(price float64) {
	if e.pos != nil {
		e.pos.price = price
	}
}

func (e *Engine) HasPosition() bool { return e.pos != nil }

func (e *Engine) Cash() float64 { return e.cash }

func (e *Engine) TotalValue() float64 {
	if e.pos == nil {
		return e.cash
	}
	return e.cash + float64(e.pos.shares)*e.pos.price
}

func (e *Engine) CloseDay(date string) {
	day := DailyPosition{Date: date, Cash: e.cash, Positions: []PositionInfo{}}
	if e.pos != nil {
		info := e.pos.info(e.stock.Code, e.stock.Name)
		day.MarketValue = info.MarketValue
		day.Positions = append(day.Positions, info)
	}
	day.TotalValue = day.Cash + day.MarketValue
	e.daily = append(e.daily, day)
}

// Simulate replays bars against the strategy in req. Signals trade at the
// bar's close; a buy only opens a flat book, a sell closes it.
func Simulate(stock kline.StockInfo, bars []kline.Bar, req Request, cfg EngineConfig) (Result, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if len(bars) == 0 {
		return Result{}, ErrNoBars
	}
	entry, err := lookupEntry(req.StrategyID)
	if err != nil {
		return Result{}, err
	}
	params, err := PrepareParams(entry.def, req.StrategyParams)
	if err != nil {
		return Result{}, err
	}
	signals := entry.signals(bars, params)
	byIndex := make(map[int]Signal, len(signals))
	for _, s := range signals {
		byIndex[s.Index] = s
	}

	eng := NewEngine(cfg, stock, req.InitialCapital)
	firstClose := bars[0].Close.InexactFloat64()
	if firstClose <= 0 {
		return Result{}, fmt.Errorf("invalid first close %v", firstClose)
	}
	holdShares := eng.lots(int64(req.InitialCapital * 0.999 / firstClose))
	holdCash := req.InitialCapital - float64(holdShares)*firstClose

	equity := make([]EquityPoint, 0, len(bars))
	hold := make([]EquityPoint, 0, len(bars))
	for i, b := range bars {
		price := b.Close.InexactFloat64()
		eng.Mark(price)
		if sig, ok := byIndex[i]; ok {
			switch {
			case sig.Action == ActionBuy && !eng.HasPosition():
				budget := eng.Cash() * req.PositionRatio
				eng.Buy(b.Date, price, int64(budget/price), sig.Reason)
			case sig.Action == ActionSell && eng.HasPosition():
				eng.Sell(b.Date, price, 0, sig.Reason)
			}
		}
		eng.CloseDay(b.Date)
		equity = append(equity, EquityPoint{Date: b.Date, Value: eng.TotalValue()})
		hold = append(hold, EquityPoint{Date: b.Date, Value: holdCash + float64(holdShares)*price})
	}

	metrics := computeMetrics(eng.daily, eng.trades, req.InitialCapital)
	holdReturn := round2((hold[len(hold)-1].Value - req.InitialCapital) / req.InitialCapital * 100)
	excess := round2(metrics.TotalReturn - holdReturn)
	metrics.BuyHoldReturn = &holdReturn
	metrics.ExcessReturn = &excess

	return Result{
		StockCode:      stock.Code,
		StockName:      stock.Name,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		StrategyName:   entry.def.Name,
		StrategyParams: params,
		InitialCapital: req.InitialCapital,
		FinalCapital:   eng.TotalValue(),
		Metrics:        metrics,
		DailyRecords:   eng.daily,
		Trades:         append([]TradeRecord{}, eng.trades...),
		EquityCurve:    equity,
		BuyHoldCurve:   hold,
	}, nil
}
