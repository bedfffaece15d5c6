// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// offtarget-build ingests a FASTA file of transcripts into the transcript
// store, builds the 7-mer seed index over it, and commits a build_status
// record marking the result ready for search.
//
// usage: offtarget-build -fasta transcripts.fa -db db/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sirnaoff/offtarget/internal/buildstatus"
	"github.com/sirnaoff/offtarget/internal/ingest"
	"github.com/sirnaoff/offtarget/internal/seedindex"
	"github.com/sirnaoff/offtarget/internal/store"
)

func main() {
	fastaPath := flag.String("fasta", "", "FASTA file of transcripts to ingest (required)")
	dbDir := flag.String("db", "", "directory to hold transcripts.db, seeds.db and build_status.json (required)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: offtarget-build -fasta transcripts.fa -db db/")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *fastaPath == "" || *dbDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*fastaPath, *dbDir); err != nil {
		log.Fatal(err)
	}
}

func run(fastaPath, dbDir string) error {
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("offtarget-build: %w", err)
	}
	statusPath := filepath.Join(dbDir, "build_status.json")
	generation, err := buildstatus.NextGeneration(statusPath)
	if err != nil {
		return fmt.Errorf("offtarget-build: %w", err)
	}
	if err := buildstatus.Write(statusPath, buildstatus.Status{Generation: generation, State: buildstatus.StateBuilding}); err != nil {
		return fmt.Errorf("offtarget-build: %w", err)
	}

	st, err := store.Open(filepath.Join(dbDir, "transcripts.db"), true)
	if err != nil {
		return fmt.Errorf("offtarget-build: %w", err)
	}
	defer st.Close()

	f, err := os.Open(fastaPath)
	if err != nil {
		return fmt.Errorf("offtarget-build: %w", err)
	}
	defer f.Close()

	log.Printf("ingesting %s", fastaPath)
	istats, err := ingest.Stream(st, f)
	if err != nil {
		return fmt.Errorf("offtarget-build: %w", err)
	}
	log.Printf("ingested %d transcripts (%d bases, %d rejected)", istats.TranscriptCount, istats.BaseCount, istats.Rejected)

	ix, err := seedindex.Create(filepath.Join(dbDir, "seeds.db"))
	if err != nil {
		return fmt.Errorf("offtarget-build: %w", err)
	}
	defer ix.Close()

	log.Println("building seed index")
	seedCount, err := seedindex.Build(context.Background(), ix, st, func(done, seeds int) {
		log.Printf("indexed %d transcripts, %d seeds so far", done, seeds)
	})
	if err != nil {
		return fmt.Errorf("offtarget-build: %w", err)
	}

	status := buildstatus.Status{
		Generation:      generation,
		State:           buildstatus.StateReady,
		TranscriptCount: istats.TranscriptCount,
		SeedCount:       seedCount,
	}
	if err := buildstatus.Write(statusPath, status); err != nil {
		return fmt.Errorf("offtarget-build: %w", err)
	}
	log.Printf("build generation %d ready: %d transcripts, %d seeds", status.Generation, status.TranscriptCount, status.SeedCount)
	return nil
}
