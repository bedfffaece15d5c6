// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// offtarget-search runs one or more guide strands against a built index
// and reports off-target predictions as JSON or CSV.
//
// usage: offtarget-search -db db/ -guides guides.json [-csv] [-config config.jsonc] [-fasta transcripts.fa]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sirnaoff/offtarget/internal/buildstatus"
	"github.com/sirnaoff/offtarget/internal/config"
	"github.com/sirnaoff/offtarget/internal/orchestrator"
	"github.com/sirnaoff/offtarget/internal/report"
	"github.com/sirnaoff/offtarget/internal/seedindex"
	"github.com/sirnaoff/offtarget/internal/store"
)

func main() {
	dbDir := flag.String("db", "", "directory holding transcripts.db, seeds.db and build_status.json (required)")
	guidesPath := flag.String("guides", "", "JSON file of {name, sequence} guide requests (required)")
	configPath := flag.String("config", "", "optional JWCC engine config file")
	fastaPath := flag.String("fasta", "", "optional reference FASTA to serve transcript windows from disk via an fai index, instead of from the in-memory sequence cache")
	asCSV := flag.Bool("csv", false, "write the first guide's off-targets as CSV instead of JSON")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: offtarget-search -db db/ -guides guides.json [-csv] [-config config.jsonc] [-fasta transcripts.fa]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *dbDir == "" || *guidesPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*dbDir, *guidesPath, *configPath, *fastaPath, *asCSV); err != nil {
		log.Fatal(err)
	}
}

func run(dbDir, guidesPath, configPath, fastaPath string, asCSV bool) error {
	if _, err := buildstatus.RequireReady(filepath.Join(dbDir, "build_status.json")); err != nil {
		return fmt.Errorf("offtarget-search: %w", err)
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("offtarget-search: %w", err)
		}
	}

	st, err := store.Open(filepath.Join(dbDir, "transcripts.db"), false)
	if err != nil {
		return fmt.Errorf("offtarget-search: %w", err)
	}
	defer st.Close()

	if fastaPath != "" {
		if err := st.AttachFASTA(fastaPath); err != nil {
			return fmt.Errorf("offtarget-search: %w", err)
		}
	}

	ix, err := seedindex.Open(filepath.Join(dbDir, "seeds.db"))
	if err != nil {
		return fmt.Errorf("offtarget-search: %w", err)
	}
	defer ix.Close()

	f, err := os.Open(guidesPath)
	if err != nil {
		return fmt.Errorf("offtarget-search: %w", err)
	}
	defer f.Close()

	var reqs []orchestrator.GuideRequest
	if err := json.NewDecoder(f).Decode(&reqs); err != nil {
		return fmt.Errorf("offtarget-search: decode %s: %w", guidesPath, err)
	}

	o := orchestrator.New(st, ix)
	o.Progress = func(done, total int) {
		log.Printf("scored %d/%d candidates", done, total)
	}

	params := cfg.Resolve(config.RequestOverrides{})
	results, err := o.AnalyzeBatch(context.Background(), reqs, params)
	if err != nil {
		return fmt.Errorf("offtarget-search: %w", err)
	}

	if asCSV {
		if len(results) == 0 {
			return nil
		}
		return report.WriteCSV(os.Stdout, results[0].OffTargets)
	}
	return report.WriteJSONBatch(os.Stdout, results)
}
