package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
)

// ============================================================
// SQLite Repository
// ============================================================

// ErrNotFound возвращается, когда анализа с таким id нет.
var ErrNotFound = errors.New("analysis not found")

// Analysis — сохранённый разбор одного изображения.
type Analysis struct {
	ID        string           `json:"id"`
	Structure models.Structure `json:"structure"`
	LatexCode string           `json:"latexCode"`
	Report    string           `json:"report,omitempty"`
	MediaType string           `json:"mediaType"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init запускает миграции.
func (r *Repository) Init(migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.Exec(string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, a *Analysis) error {
	structureJSON, err := json.Marshal(a.Structure)
	if err != nil {
		return fmt.Errorf("marshal structure: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO analyses (id, structure, latex_code, report, media_type, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, a.ID, string(structureJSON), a.LatexCode, a.Report, a.MediaType, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Analysis, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, structure, latex_code, report, media_type, created_at, updated_at
        FROM analyses
        WHERE id = ?
    `, id)
	return scanAnalysis(row)
}

// List возвращает анализы в порядке создания, новые первыми.
func (r *Repository) List(ctx context.Context) ([]*Analysis, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, structure, latex_code, report, media_type, created_at, updated_at
        FROM analyses
        ORDER BY created_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStructure перезаписывает структуру после локальной правки.
func (r *Repository) UpdateStructure(ctx context.Context, id string, s models.Structure) error {
	structureJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal structure: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
        UPDATE analyses SET structure = ?, updated_at = ? WHERE id = ?
    `, string(structureJSON), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateReport сохраняет сгенерированный отчёт.
func (r *Repository) UpdateReport(ctx context.Context, id, report string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE analyses SET report = ?, updated_at = ? WHERE id = ?
    `, report, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ============================================================
// Helpers
// ============================================================

type scannable interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scannable) (*Analysis, error) {
	var a Analysis
	var structureJSON string
	if err := row.Scan(&a.ID, &structureJSON, &a.LatexCode, &a.Report, &a.MediaType, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(structureJSON), &a.Structure); err != nil {
		return nil, fmt.Errorf("unmarshal structure: %w", err)
	}
	return &a, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
