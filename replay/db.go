// Package replay queries recorded games with DuckDB.
//
// Replay parquet shards written by the store package are exposed as a single
// "ticks" view. Nothing here writes data.
package replay

import (
	"database/sql"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// FindReplayFiles walks roots for .parquet files. In-progress tmp directories
// are skipped and missing roots are treated as empty. Paths seen under more
// than one root are returned once.
func FindReplayFiles(roots []string) ([]string, error) {
	seen := make(map[string]bool, 64)
	out := make([]string, 0, 64)
	for _, r := range roots {
		files, err := findParquetFiles(r)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if seen[f] {
				continue
			}
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

func findParquetFiles(root string) ([]string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "tmp" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ".parquet") {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return nil, nil
		}
		return nil, walkErr
	}
	return files, nil
}

// OpenRoots finds every replay under roots and opens them with Open.
func OpenRoots(roots []string) (*sql.DB, error) {
	files, err := FindReplayFiles(roots)
	if err != nil {
		return nil, err
	}
	return Open(files)
}

// Open returns an in-memory DuckDB with a "ticks" view over files. With no
// files the view exists but is empty, so queries still succeed.
func Open(files []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	// Not every DuckDB build knows this pragma.
	_, _ = db.Exec("PRAGMA enable_object_cache=false")

	if len(files) == 0 {
		_, err := db.Exec(`CREATE OR REPLACE VIEW ticks AS
			SELECT * FROM (
				SELECT
					NULL::VARCHAR AS game_id,
					NULL::BIGINT AS tick,
					NULL::INTEGER AS width,
					NULL::INTEGER AS height,
					NULL::INTEGER[] AS body_x,
					NULL::INTEGER[] AS body_y,
					NULL::BOOLEAN AS has_food,
					NULL::INTEGER AS food_x,
					NULL::INTEGER AS food_y,
					NULL::VARCHAR AS direction,
					NULL::VARCHAR AS event,
					NULL::VARCHAR AS cause,
					NULL::INTEGER AS score,
					NULL::INTEGER AS high_score,
					NULL::DOUBLE AS speed,
					NULL::INTEGER AS food_eaten,
					NULL::VARCHAR AS source,
					NULL::BIGINT AS created_ns,
					NULL::VARCHAR AS filename
			) WHERE 1=0`)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	arr := make([]string, 0, len(files))
	for _, p := range files {
		arr = append(arr, "'"+escapeSQLString(p)+"'")
	}
	sqlText := "CREATE OR REPLACE VIEW ticks AS SELECT * FROM read_parquet([" + strings.Join(arr, ",") + "], filename=true)"
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
