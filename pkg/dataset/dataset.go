// Package dataset persists arena games and self-play samples as parquet files.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const (
	GameSchema   = "arbor_game_v1"
	SampleSchema = "arbor_sample_v1"
)

// GameRow is one finished arena game.
//
// Result is seen from the first engine: 1 win, -1 loss, 0 draw.
// Moves are the actions in their text form, in play order.
type GameRow struct {
	Game        int32    `parquet:"game"`
	Worker      int32    `parquet:"worker"`
	FirstEngine string   `parquet:"first_engine,dict"`
	P1Name      string   `parquet:"p1_name,dict"`
	P2Name      string   `parquet:"p2_name,dict"`
	P1First     bool     `parquet:"p1_first"`
	Result      int32    `parquet:"result"`
	Moves       []string `parquet:"moves"`
	DurationMs  int64    `parquet:"duration_ms"`
}

// SampleRow is one searched position reached by random play.
//
// Value and Error are the root estimates for the side to move, the per-action
// vectors are aligned with Actions.
type SampleRow struct {
	Depth      int32     `parquet:"depth"`
	Seed       int64     `parquet:"seed"`
	Moves      []string  `parquet:"moves"`
	Player     string    `parquet:"player,dict"`
	Iterations int32     `parquet:"iterations"`
	Value      float32   `parquet:"value"`
	Error      float32   `parquet:"error"`
	Best       string    `parquet:"best,dict"`
	Actions    []string  `parquet:"actions"`
	Values     []float32 `parquet:"values"`
	Visits     []int32   `parquet:"visits"`
	Terminal   bool      `parquet:"terminal"`
}

func WriteGames(outPath string, rows []GameRow) error {
	return writeAtomic(outPath, rows, GameSchema)
}

func WriteSamples(outPath string, rows []SampleRow) error {
	return writeAtomic(outPath, rows, SampleSchema)
}

func ReadGames(path string) ([]GameRow, error) {
	rows, err := parquet.ReadFile[GameRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}

func ReadSamples(path string) ([]SampleRow, error) {
	rows, err := parquet.ReadFile[SampleRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}

// Write to a temp file and rename, readers never see a partial file
func writeAtomic[T any](outPath string, rows []T, schema string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
	); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}
