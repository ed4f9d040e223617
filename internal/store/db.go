package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a journaled evaluation does not exist.
var ErrNotFound = errors.New("evaluation not found")

// Database wraps the GORM DB handle and exposes the evaluation journal.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed journal at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Evaluation{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveEvaluation appends an evaluation to the journal.
func (d *Database) SaveEvaluation(e *Evaluation) error {
	if d == nil {
		return errors.New("database is nil")
	}
	if e == nil {
		return errors.New("evaluation is nil")
	}
	if strings.TrimSpace(e.EvaluationID) == "" {
		return errors.New("evaluation id is empty")
	}
	e.Level = strings.ToUpper(strings.TrimSpace(e.Level))
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(e).Error
}

// GetEvaluation fetches a journaled evaluation by its public id.
func (d *Database) GetEvaluation(evaluationID string) (*Evaluation, error) {
	var row Evaluation
	err := d.gorm.Where("evaluation_id = ?", strings.TrimSpace(evaluationID)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// EvaluationQuery encapsulates filters and pagination for listing journal rows.
type EvaluationQuery struct {
	Level  string
	Source string
	Sort   string
	Offset int
	Limit  int
}

// ListEvaluations returns paginated journal rows applying optional filters.
func (d *Database) ListEvaluations(opts EvaluationQuery) ([]Evaluation, int64, error) {
	var total int64
	base := d.gorm.Model(&Evaluation{})
	if level := strings.TrimSpace(opts.Level); level != "" {
		base = base.Where("level = ?", strings.ToUpper(level))
	}
	if source := strings.TrimSpace(opts.Source); source != "" {
		base = base.Where("source = ?", strings.ToLower(source))
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	queryBuilder := base.Order(orderForSort(opts.Sort)).Offset(opts.Offset)
	if opts.Limit > 0 {
		queryBuilder = queryBuilder.Limit(opts.Limit)
	}

	var rows []Evaluation
	if err := queryBuilder.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "created_asc":
		return "evaluations.created_at ASC, evaluations.id ASC"
	case "amount_desc":
		return "evaluations.requested_amount DESC, evaluations.id DESC"
	case "amount_asc":
		return "evaluations.requested_amount ASC, evaluations.id DESC"
	default:
		return "evaluations.id DESC"
	}
}

// LevelCount is the number of journaled evaluations resolved at a level.
type LevelCount struct {
	Level string `json:"level"`
	Total int64  `json:"total"`
}

// CountByLevel aggregates the journal per resolved level.
func (d *Database) CountByLevel() ([]LevelCount, error) {
	var rows []LevelCount
	err := d.gorm.Model(&Evaluation{}).
		Select("level, COUNT(*) AS total").
		Group("level").
		Order("level ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by level: %w", err)
	}
	return rows, nil
}

// ClearEvaluations removes every journaled evaluation.
func (d *Database) ClearEvaluations() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Evaluation{}).Error
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_evaluations_level_created ON evaluations(level, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_evaluations_requested_amount ON evaluations(requested_amount)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
