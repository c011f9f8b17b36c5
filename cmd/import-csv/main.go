package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"segmenthub/internal/codec"
	"segmenthub/pkg/database"
)

func main() {
	var (
		unitsIn = flag.String("units", "data/memory_units.csv", "input CSV path for translation units")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.MemoryConfig())
	defer db.Close()

	if err := database.Migrate(db, "docs/memory_schema.sql"); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	n, err := importUnits(ctx, db, *unitsIn)
	if err != nil {
		log.Fatalf("import units failed: %v", err)
	}

	log.Printf("imported %d translation units from %s", n, *unitsIn)
}

func importUnits(ctx context.Context, db *sql.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return 0, err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO memory_units (id, lang_source, lang_target, source_stripped, source_html, target_stripped, target_html, quality)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  lang_source = excluded.lang_source,
		  lang_target = excluded.lang_target,
		  source_stripped = excluded.source_stripped,
		  source_html = excluded.source_html,
		  target_stripped = excluded.target_stripped,
		  target_html = excluded.target_html,
		  quality = excluded.quality
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}
		if len(row) == 0 {
			continue
		}

		sourceHTML := valueAt(header, row, "source_html")
		targetHTML := valueAt(header, row, "target_html")
		langSource := valueAt(header, row, "lang_source")
		langTarget := valueAt(header, row, "lang_target")
		if sourceHTML == "" || targetHTML == "" || langSource == "" || langTarget == "" {
			continue
		}

		id := valueAt(header, row, "id")
		if id == "" {
			id = uuid.NewString()
		}

		// Stripped columns are optional; derive them when absent.
		sourceStripped := valueAt(header, row, "source_stripped")
		if sourceStripped == "" {
			sourceStripped = codec.Strip(sourceHTML)
		}
		targetStripped := valueAt(header, row, "target_stripped")
		if targetStripped == "" {
			targetStripped = codec.Strip(targetHTML)
		}

		quality, err := parseQuality(valueAt(header, row, "quality"))
		if err != nil {
			return count, fmt.Errorf("parse quality for %s: %w", id, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			langSource,
			langTarget,
			sourceStripped,
			sourceHTML,
			targetStripped,
			targetHTML,
			quality,
		); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseQuality(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("quality %d out of range", n)
	}
	return n, nil
}
