// Package planstore 用 Gorm + SQLite 落地已生成的交易计划，
// 供复盘与「最近一次计划」查询。
package planstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tplan/internal/engine"
)

var ErrNotFound = errors.New("plan not found")

// PlanModel 一条计划日志。ScalePlan/Notes 以 JSON 原样存储。
type PlanModel struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	Ticker string `gorm:"size:32;index"`
	Side   string `gorm:"size:8"`
	Regime string `gorm:"size:16"`

	Entry      float64
	Stop       float64
	T1         float64
	T2         float64
	R1         float64
	R2         float64
	Shares     int
	RiskAmount float64

	ScalePlan datatypes.JSON
	Notes     datatypes.JSON

	// 推送成功后回填的笔记页 id，没推送为空
	PageID string `gorm:"size:64"`
}

func (PlanModel) TableName() string { return "plan_journal" }

// Store 计划日志仓库。
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("plan store: 数据库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&PlanModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveResult 把一次成功的动态规划结果写进日志。失败的计划不入库。
func (s *Store) SaveResult(ctx context.Context, ticker string, res engine.PlanResult, pageID string) (*PlanModel, error) {
	if !res.OK {
		return nil, fmt.Errorf("plan store: 只记录成功的计划")
	}
	scaleJSON, err := json.Marshal(res.ScalePlan)
	if err != nil {
		return nil, fmt.Errorf("encode scale plan: %w", err)
	}
	notesJSON, err := json.Marshal(res.Notes)
	if err != nil {
		return nil, fmt.Errorf("encode notes: %w", err)
	}
	rec := &PlanModel{
		Ticker:     strings.ToUpper(strings.TrimSpace(ticker)),
		Regime:     res.Regime,
		Entry:      res.Entry,
		Stop:       res.Stop,
		T1:         res.T1,
		T2:         res.T2,
		R1:         res.R1,
		R2:         res.R2,
		Shares:     res.Shares,
		RiskAmount: res.RiskAmount,
		ScalePlan:  scaleJSON,
		Notes:      notesJSON,
		PageID:     pageID,
	}
	if rec.Stop > rec.Entry {
		rec.Side = string(engine.SideShort)
	} else {
		rec.Side = string(engine.SideLong)
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// List 按时间倒序取最近 limit 条。
func (s *Store) List(ctx context.Context, limit int) ([]PlanModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []PlanModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// LatestByTicker 指定标的的最近一条计划。
func (s *Store) LatestByTicker(ctx context.Context, ticker string) (*PlanModel, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	var rec PlanModel
	err := s.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("created_at DESC, id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DecodeScalePlan 把 JSON 列还原成分批腿。
func (m *PlanModel) DecodeScalePlan() ([]engine.ScaleLeg, error) {
	if len(m.ScalePlan) == 0 {
		return nil, nil
	}
	var legs []engine.ScaleLeg
	if err := json.Unmarshal(m.ScalePlan, &legs); err != nil {
		return nil, fmt.Errorf("decode scale plan: %w", err)
	}
	return legs, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
