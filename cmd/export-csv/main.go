package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"segmenthub/pkg/database"
)

func main() {
	var (
		unitsOut = flag.String("units", "data/memory_units.csv", "output CSV path for translation units")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.MemoryConfig())
	defer db.Close()

	if err := database.Migrate(db, "docs/memory_schema.sql"); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportUnits(ctx, db, *unitsOut); err != nil {
		log.Fatalf("export units failed: %v", err)
	}

	log.Printf("exported translation units to %s", *unitsOut)
}

func exportUnits(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "lang_source", "lang_target", "source_stripped", "source_html", "target_stripped", "target_html", "quality", "created_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, lang_source, lang_target, source_stripped, source_html, target_stripped, target_html, quality, created_at
        FROM memory_units
        ORDER BY lang_source, lang_target, created_at
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id             string
			langSource     string
			langTarget     string
			sourceStripped string
			sourceHTML     string
			targetStripped string
			targetHTML     string
			quality        int
			createdAt      sql.NullTime
		)

		if err := rows.Scan(&id, &langSource, &langTarget, &sourceStripped, &sourceHTML, &targetStripped, &targetHTML, &quality, &createdAt); err != nil {
			return err
		}

		created := ""
		if createdAt.Valid {
			created = createdAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			id,
			langSource,
			langTarget,
			sourceStripped,
			sourceHTML,
			targetStripped,
			targetHTML,
			strconv.Itoa(quality),
			created,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
