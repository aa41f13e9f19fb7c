package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"imgcap/models"
	"imgcap/pkg/caption"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store persists caption runs, analyses and API clients.
type Store struct {
	db *gorm.DB
}

// Open connects with driver ("postgres" or "sqlite") and optionally migrates the schema.
// Migration failures are logged per table and do not abort, so a read-only role still works.
func Open(driver, dsn string, autoMigrate bool) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty DSN for driver %s", driver)
	}
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown db driver %q", driver)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	s := &Store{db: gdb}
	if autoMigrate {
		s.Migrate()
	}
	return s, nil
}

// Migrate creates or updates each table individually.
func (s *Store) Migrate() {
	for name, m := range map[string]any{
		"caption_runs":   &models.CaptionRun{},
		"image_analyses": &models.ImageAnalysis{},
		"clients":        &models.Client{},
	} {
		if err := s.db.AutoMigrate(m); err != nil {
			log.Printf("migration warning (%s): %v", name, err)
		}
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun inserts or updates run, keyed by RunID.
func (s *Store) SaveRun(run *models.CaptionRun) error {
	var existing models.CaptionRun
	err := s.db.Where("run_id = ?", run.RunID).First(&existing).Error
	switch {
	case err == nil:
		run.ID = existing.ID
		run.CreatedAt = existing.CreatedAt
		return s.db.Save(run).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.db.Create(run).Error
	default:
		return err
	}
}

// GetRun loads a run by its RunID.
func (s *Store) GetRun(runID string) (*models.CaptionRun, error) {
	var run models.CaptionRun
	if err := s.db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun() (*models.CaptionRun, error) {
	var run models.CaptionRun
	if err := s.db.Order("started_at desc, id desc").First(&run).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// SaveAnalysis stores a under runID. Saving the same analysis id twice updates the row.
func (s *Store) SaveAnalysis(runID string, a caption.Analysis) (*models.ImageAnalysis, error) {
	row, err := analysisRow(runID, a)
	if err != nil {
		return nil, err
	}
	var existing models.ImageAnalysis
	err = s.db.Where("analysis_id = ?", row.AnalysisID).First(&existing).Error
	switch {
	case err == nil:
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		if err := s.db.Save(row).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.Create(row).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return row, nil
}

// ListAnalyses returns the newest analyses first, optionally only those tagged with tag.
func (s *Store) ListAnalyses(limit int, tag string) ([]models.ImageAnalysis, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	q := s.db.Model(&models.ImageAnalysis{})
	if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
		q = q.Where(`tags LIKE ? ESCAPE '\'`, "%,"+likeEscaper.Replace(tag)+",%")
	}
	var rows []models.ImageAnalysis
	if err := q.Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetAnalysis loads one analysis row by primary key.
func (s *Store) GetAnalysis(id uint) (*models.ImageAnalysis, error) {
	var row models.ImageAnalysis
	if err := s.db.First(&row, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

// likeEscaper makes LIKE wildcards in a tag match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FindLatestByFileName returns the newest analysis for a file name.
func (s *Store) FindLatestByFileName(name string) (*models.ImageAnalysis, error) {
	var row models.ImageAnalysis
	if err := s.db.Where("file_name = ?", name).Order("id desc").First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

// FailedAnalyses returns the failed analyses of runID, or of every run when runID is empty.
func (s *Store) FailedAnalyses(runID string) ([]models.ImageAnalysis, error) {
	q := s.db.Where("failed = ?", true)
	if runID != "" {
		q = q.Where("run_id = ?", runID)
	}
	var rows []models.ImageAnalysis
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TagCount is one line of a tag frequency report.
type TagCount struct {
	Tag   string
	Count int
}

// TagCounts tallies tags over the successful analyses of runID, most frequent first.
func (s *Store) TagCounts(runID string) ([]TagCount, error) {
	var tagCols []string
	if err := s.db.Model(&models.ImageAnalysis{}).
		Where("run_id = ? AND failed = ?", runID, false).
		Pluck("tags", &tagCols).Error; err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, col := range tagCols {
		for _, t := range splitTags(col) {
			counts[t]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TagCount{Tag: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

// FailedCount returns how many analyses of runID fell back to the error result.
func (s *Store) FailedCount(runID string) (int64, error) {
	var n int64
	err := s.db.Model(&models.ImageAnalysis{}).Where("run_id = ? AND failed = ?", runID, true).Count(&n).Error
	return n, err
}

// DecodeAnalysis restores the full analysis stored in row.Payload.
func DecodeAnalysis(row *models.ImageAnalysis) (caption.Analysis, error) {
	var a caption.Analysis
	if err := json.Unmarshal([]byte(row.Payload), &a); err != nil {
		return caption.Analysis{}, fmt.Errorf("decode payload of analysis %d: %w", row.ID, err)
	}
	return a, nil
}

func analysisRow(runID string, a caption.Analysis) (*models.ImageAnalysis, error) {
	if a.ID == "" {
		return nil, fmt.Errorf("analysis for %s has no id", a.Filename)
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	row := &models.ImageAnalysis{
		AnalysisID:    a.ID,
		RunID:         runID,
		FileName:      a.Filename,
		AIDescription: a.AIDescription,
		Tags:          joinTags(a.Tags),
		Failed:        a.Failed(),
		Error:         truncate(a.Error, 512),
		Payload:       string(payload),
	}
	if !a.Failed() {
		row.Caption = caption.PrimaryCaption(a)
	}
	if p := a.ImageProperties; p != nil {
		row.Width, row.Height, row.Format = p.Width, p.Height, p.Format
	}
	return row, nil
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "," + strings.Join(tags, ",") + ","
}

func splitTags(col string) []string {
	var out []string
	for _, t := range strings.Split(col, ",") {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// FinishRun stamps the run totals and end time.
func FinishRun(run *models.CaptionRun, total, failed int) {
	now := time.Now()
	run.Total = total
	run.Failed = failed
	run.FinishedAt = &now
}
