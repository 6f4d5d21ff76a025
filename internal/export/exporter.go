package export

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options controls what an export run includes and where it lands.
type Options struct {
	Dir           string
	ImageDir      string
	IncludeImages bool
}

// Exporter dumps the operational tables into one timestamped JSON file
// so the data can be moved between installations or archived.
type Exporter struct {
	logger *slog.Logger
	pool   *pgxpool.Pool
	opts   Options
}

// NewExporter builds an Exporter.
func NewExporter(logger *slog.Logger, pool *pgxpool.Pool, opts Options) *Exporter {
	return &Exporter{logger: logger, pool: pool, opts: opts}
}

// Snapshot is the export file layout.
type Snapshot struct {
	ExportedAt time.Time         `json:"exported_at"`
	Tables     map[string][]row  `json:"tables"`
	Images     map[string]string `json:"images,omitempty"`
}

type row = map[string]any

// exportTables lists what a snapshot carries, in dump order.
var exportTables = []string{
	"categories",
	"products",
	"motorcycles",
	"customers",
	"sales_invoices",
	"sales_invoice_lines",
	"stock_movements",
	"activities",
}

// Run performs a full export and returns the written file path.
func (e *Exporter) Run(ctx context.Context) (string, error) {
	snap := Snapshot{
		ExportedAt: time.Now().UTC(),
		Tables:     make(map[string][]row, len(exportTables)),
	}

	for _, table := range exportTables {
		rows, err := e.dumpTable(ctx, table)
		if err != nil {
			return "", fmt.Errorf("export %s: %w", table, err)
		}
		snap.Tables[table] = rows
	}

	if e.opts.IncludeImages {
		images, err := e.collectImages(snap.Tables)
		if err != nil {
			return "", err
		}
		snap.Images = images
	}

	if err := os.MkdirAll(e.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := fmt.Sprintf("arbatis-export-%s.json", snap.ExportedAt.Format("20060102-150405"))
	path := filepath.Join(e.opts.Dir, name)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	e.logger.Info("export written",
		slog.String("path", path),
		slog.Int("tables", len(snap.Tables)),
		slog.Int("images", len(snap.Images)))
	return path, nil
}

func (e *Exporter) dumpTable(ctx context.Context, table string) ([]row, error) {
	rows, err := e.pool.Query(ctx, "SELECT * FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := make([]row, 0, 64)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		r := make(row, len(fields))
		for i, fd := range fields {
			r[string(fd.Name)] = values[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// collectImages inlines referenced image files as base64 keyed by their
// stored path. Missing files are skipped with a warning rather than
// failing the whole export.
func (e *Exporter) collectImages(tables map[string][]row) (map[string]string, error) {
	images := make(map[string]string)
	for _, table := range []string{"products", "motorcycles"} {
		for _, r := range tables[table] {
			p, ok := r["image_path"].(string)
			if !ok || p == "" {
				continue
			}
			if _, done := images[p]; done {
				continue
			}
			data, err := os.ReadFile(filepath.Join(e.opts.ImageDir, filepath.Clean(p)))
			if err != nil {
				e.logger.Warn("export image missing", slog.String("path", p), slog.Any("error", err))
				continue
			}
			images[p] = base64.StdEncoding.EncodeToString(data)
		}
	}
	return images, nil
}
