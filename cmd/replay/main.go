package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"backend-skitrack/internal/config"
)

func main() {
	var (
		fitPath     = flag.String("fit", "", "Path to input .fit file")
		parquetPath = flag.String("parquet", "", "Optional per-sample parquet export")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s -fit input.fit [-parquet samples.parquet]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*fitPath) == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*fitPath, *parquetPath, config.Load()); err != nil {
		fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
		os.Exit(1)
	}
}

func run(fitPath, parquetPath string, cfg config.Config) error {
	f, err := os.Open(fitPath)
	if err != nil {
		return fmt.Errorf("open FIT file: %w", err)
	}
	defer f.Close()

	readings, err := readFit(f)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		return fmt.Errorf("%s has no positioned records", fitPath)
	}

	result := replay(readings, cfg.SessionOptions())
	if parquetPath != "" {
		if err := writeParquet(parquetPath, result.Rows); err != nil {
			return fmt.Errorf("write parquet: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Summary)
}
