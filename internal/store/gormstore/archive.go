package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"klinedash/internal/backtest"
	"klinedash/internal/store"
	"klinedash/internal/store/model"
)

const defaultListLimit = 20

// Archive implements store.RunArchive using Gorm + SQLite.
type Archive struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.RunArchive = (*Archive)(nil)

// NewArchive opens (and migrates) the archive at path.
func NewArchive(path string) (*Archive, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 归档路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.BacktestRunModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &Archive{db: db, now: time.Now}, nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *Archive) Save(ctx context.Context, res backtest.Result) (string, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	params, err := json.Marshal(res.StrategyParams)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	row := model.BacktestRunModel{
		ID:           uuid.NewString(),
		StockCode:    res.StockCode,
		StockName:    res.StockName,
		StrategyName: res.StrategyName,
		StartDate:    res.StartDate,
		EndDate:      res.EndDate,
		TotalReturn:  res.Metrics.TotalReturn,
		MaxDrawdown:  res.Metrics.MaxDrawdown,
		Trades:       len(res.Trades),
		ParamsJSON:   datatypes.JSON(params),
		ResultJSON:   datatypes.JSON(raw),
		CreatedAt:    a.now(),
	}
	if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

// List returns the newest runs first; limit <= 0 means 20.
func (a *Archive) List(ctx context.Context, limit int) ([]store.RunSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var rows []model.BacktestRunModel
	err := a.db.WithContext(ctx).
		Omit("result_json").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]store.RunSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.RunSummary{
			ID:           r.ID,
			StockCode:    r.StockCode,
			StockName:    r.StockName,
			StrategyName: r.StrategyName,
			StartDate:    r.StartDate,
			EndDate:      r.EndDate,
			TotalReturn:  r.TotalReturn,
			MaxDrawdown:  r.MaxDrawdown,
			Trades:       r.Trades,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, nil
}

func (a *Archive) Get(ctx context.Context, id string) (backtest.Result, error) {
	var row model.BacktestRunModel
	err := a.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return backtest.Result{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return backtest.Result{}, err
	}
	var res backtest.Result
	if err := json.Unmarshal(row.ResultJSON, &res); err != nil {
		return backtest.Result{}, fmt.Errorf("decode run %s: %w", id, err)
	}
	return res, nil
}
