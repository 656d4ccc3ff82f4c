package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/jitter"
	"github.com/EmpoweredVote/EV-PublicMap/internal/points"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

var (
	csvPath     string
	dryRun      bool
	advisoryKey int64
	jitterSeed  int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import points from a CSV file",
	Long: `Import points from a CSV file in one read-committed transaction.

CSV contract (header required, extra columns ignored):
  lat,lng,precision,accuracy_m,status,category,public_note,region,owner_id
Only lat, lng and precision are required. Public coordinates are stamped on
import exactly as the service does on write.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&csvPath, "csv", "", "Path to the source CSV (required)")
	seedCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse + validate only; no DB writes")
	seedCmd.Flags().Int64Var(&advisoryKey, "advisory-lock", 0, "Optional Postgres advisory lock key (e.g., 424242). 0 = disabled")
	seedCmd.Flags().Int64Var(&jitterSeed, "jitter-seed", 0, "Seed for approximate coordinates. 0 = time based")
	_ = seedCmd.MarkFlagRequired("csv")
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	seed := jitterSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rows, err := loadPoints(bufio.NewReader(f), jitter.NewSeeded(seed))
	if err != nil {
		return fmt.Errorf("CSV error: %w", err)
	}
	fmt.Printf("Loaded %d points from %s\n", len(rows), csvPath)

	if dryRun {
		approx := 0
		for _, p := range rows {
			if p.Precision == points.PrecisionApprox {
				approx++
			}
		}
		fmt.Printf("Plan: insert %d points (%d approximate, %d exact)\n", len(rows), approx, len(rows)-approx)
		fmt.Println("Dry run complete. No changes made.")
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op if already committed
	}()

	// Optional advisory lock to avoid concurrent runs
	if advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
	}

	table := pointsTable(cfg.DBSchema)
	before, err := countPoints(ctx, tx, table)
	if err != nil {
		return fmt.Errorf("pre-count: %w", err)
	}

	if err := insertPoints(ctx, tx, table, rows); err != nil {
		return fmt.Errorf("insert points: %w", err)
	}

	after, err := countPoints(ctx, tx, table)
	if err != nil {
		return fmt.Errorf("post-count: %w", err)
	}
	if after-before != int64(len(rows)) {
		return fmt.Errorf("sanity check failed: inserted %d rows, expected %d", after-before, len(rows))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	fmt.Printf("Seed complete: points %d -> %d. Public view updates on the next refresh.\n", before, after)
	return nil
}

func pointsTable(schema string) string {
	if schema == "" {
		return pgx.Identifier{"points"}.Sanitize()
	}
	return pgx.Identifier{schema, "points"}.Sanitize()
}

// loadPoints parses and validates every record, stamping public coordinates
// with j. Any bad record fails the whole file.
func loadPoints(r io.Reader, j *jitter.Engine) ([]points.Point, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	headers, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"lat", "lng", "precision"} {
		if _, ok := idx[k]; !ok {
			return nil, fmt.Errorf("missing required column: %s", k)
		}
	}

	get := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []points.Point
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}

		lat, err := strconv.ParseFloat(get(rec, "lat"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: lat: %w", line, err)
		}
		lng, err := strconv.ParseFloat(get(rec, "lng"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: lng: %w", line, err)
		}

		p := points.Point{
			ID:         uuid.New(),
			Lat:        lat,
			Lng:        lng,
			Precision:  points.Precision(strings.ToLower(get(rec, "precision"))),
			Status:     points.Status(strings.ToLower(get(rec, "status"))),
			Category:   get(rec, "category"),
			PublicNote: get(rec, "public_note"),
			Region:     get(rec, "region"),
			OwnerID:    get(rec, "owner_id"),
		}
		if v := get(rec, "accuracy_m"); v != "" {
			acc, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: accuracy_m: %w", line, err)
			}
			p.AccuracyM = &acc
		}
		if err := points.Validate(&p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points.StampPublic(j, &p)
		out = append(out, p)
	}
	return out, nil
}

func countPoints(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var n int64
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE deleted_at IS NULL`).Scan(&n)
	return n, err
}

func insertPoints(ctx context.Context, tx *sql.Tx, table string, rows []points.Point) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+`
		(id, lat, lng, public_lat, public_lng, accuracy_m, "precision", status,
		 category, public_note, region, owner_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range rows {
		p := &rows[i]
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Lat, p.Lng, p.PublicLat, p.PublicLng, p.AccuracyM,
			string(p.Precision), string(p.Status),
			p.Category, p.PublicNote, p.Region, p.OwnerID, now,
		); err != nil {
			return fmt.Errorf("point %d: %w", i+1, err)
		}
	}
	return nil
}
