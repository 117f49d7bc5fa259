package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/codereview/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serializes writers; SQLite allows only one at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Reviews ---

const reviewColumns = `id, verdict, overview, code, requirements, model, error_count, warning_count, failure_count, path, review_items, final_report, fallback, cancelled, duration_ms, created_at`

func (s *SQLiteStore) SaveReview(ctx context.Context, r *models.ReviewRecord) error {
	if r.ID == "" {
		r.ID = newULID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	pathJSON, err := json.Marshal(r.Path)
	if err != nil {
		pathJSON = []byte("[]")
	}
	itemsJSON, err := json.Marshal(r.Items)
	if err != nil {
		itemsJSON = []byte("[]")
	}
	var reportJSON []byte
	if r.Report != nil {
		if reportJSON, err = json.Marshal(r.Report); err != nil {
			return fmt.Errorf("encode final report: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reviews (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Verdict), r.Overview, r.Code, r.Requirements, r.Model,
		r.ErrorCount, r.WarningCount, r.FailureCount,
		string(pathJSON), string(itemsJSON), string(reportJSON),
		boolToInt(r.Fallback), boolToInt(r.Cancelled), r.DurationMS, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save review: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*models.ReviewRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)
	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return r, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// FindReview resolves a full id or a unique, case-insensitive id prefix.
func (s *SQLiteStore) FindReview(ctx context.Context, idOrPrefix string) (*models.ReviewRecord, error) {
	id := strings.ToUpper(strings.TrimSpace(idOrPrefix))
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	r, err := s.GetReview(ctx, id)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM reviews WHERE id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`,
		likeEscaper.Replace(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan review id: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return s.GetReview(ctx, matches[0])
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, idOrPrefix)
	}
}

// ListReviews returns reviews newest first.
func (s *SQLiteStore) ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.ReviewRecord, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews`
	var args []any
	if filter.Verdict != "" {
		query += ` WHERE verdict = ?`
		args = append(args, string(filter.Verdict))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reviews []*models.ReviewRecord
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *SQLiteStore) DeleteReview(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReview(row scanner) (*models.ReviewRecord, error) {
	r := &models.ReviewRecord{}
	var pathJSON, itemsJSON, reportJSON string
	err := row.Scan(&r.ID, &r.Verdict, &r.Overview, &r.Code, &r.Requirements, &r.Model,
		&r.ErrorCount, &r.WarningCount, &r.FailureCount,
		&pathJSON, &itemsJSON, &reportJSON,
		&r.Fallback, &r.Cancelled, &r.DurationMS, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal([]byte(pathJSON), &r.Path)
	_ = json.Unmarshal([]byte(itemsJSON), &r.Items)
	if r.Items == nil {
		r.Items = []models.ReviewItem{}
	}
	if reportJSON != "" {
		report := &models.FinalReport{}
		if err := json.Unmarshal([]byte(reportJSON), report); err == nil {
			r.Report = report
		}
	}
	return r, nil
}
