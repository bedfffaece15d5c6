// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// offtarget-audit is an interactive REPL for inspecting a built
// transcript store and seed index: build status, individual transcript
// records, and the raw postings under a given 7-mer seed.
//
// usage: offtarget-audit -db db/
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/sirnaoff/offtarget/internal/buildstatus"
	"github.com/sirnaoff/offtarget/internal/codec"
	"github.com/sirnaoff/offtarget/internal/seedindex"
	"github.com/sirnaoff/offtarget/internal/store"
)

func main() {
	dbDir := flag.String("db", "", "directory holding transcripts.db, seeds.db and build_status.json (required)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: offtarget-audit -db db/")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *dbDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*dbDir); err != nil {
		log.Fatal(err)
	}
}

func run(dbDir string) error {
	statusPath := filepath.Join(dbDir, "build_status.json")

	st, err := store.Open(filepath.Join(dbDir, "transcripts.db"), false)
	if err != nil {
		return fmt.Errorf("offtarget-audit: %w", err)
	}
	defer st.Close()

	ix, err := seedindex.Open(filepath.Join(dbDir, "seeds.db"))
	if err != nil {
		return fmt.Errorf("offtarget-audit: %w", err)
	}
	defer ix.Close()

	r := &repl{st: st, ix: ix, statusPath: statusPath}
	return r.run()
}

// repl is the interactive command loop over an opened store and index.
type repl struct {
	st         *store.Store
	ix         *seedindex.Index
	statusPath string
	line       *liner.State
}

// historyFile returns the path to the audit REPL's command history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".offtarget_audit_history")
}

func (r *repl) run() error {
	r.line = liner.NewLiner()
	defer r.line.Close()
	r.line.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}

	fmt.Println("offtarget-audit - transcript store and seed index inspector")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.line.Prompt("offtarget-audit> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("offtarget-audit: reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.line.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()
			return nil
		case "help", "?":
			r.printHelp()
		case "status":
			r.cmdStatus()
		case "get":
			r.cmdGet(args)
		case "seed":
			r.cmdSeed(args)
		default:
			fmt.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
	r.saveHistory()
	return nil
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *repl) printHelp() {
	fmt.Println("commands:")
	fmt.Println("  status                show build generation and readiness")
	fmt.Println("  get <transcript_id>    print a transcript record")
	fmt.Println("  seed <7mer>            list raw seed index postings for an exact 7nt seed")
	fmt.Println("  help, ?                show this help")
	fmt.Println("  exit, quit, q          leave the REPL")
}

func (r *repl) cmdStatus() {
	st, err := buildstatus.Read(r.statusPath)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("generation=%d state=%s transcripts=%d seeds=%d ready=%v\n",
		st.Generation, st.State, st.TranscriptCount, st.SeedCount, st.Ready())
}

func (r *repl) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: get <transcript_id>")
		return
	}
	t, err := r.st.Get(args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	start, end := t.SearchableRange()
	fmt.Printf("id=%s gene_symbol=%q gene_id=%q length=%d searchable_range=[%d,%d)\n",
		t.ID, t.GeneSymbol, t.GeneID, t.Length(), start, end)
}

func (r *repl) cmdSeed(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: seed <7mer>")
		return
	}
	seed, err := codec.Normalize(args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(seed) != codec.SeedLength {
		fmt.Printf("error: seed must be exactly %d nt, got %d\n", codec.SeedLength, len(seed))
		return
	}
	postings, err := seedindex.Postings(r.ix, seed)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(postings) == 0 {
		fmt.Println("no postings")
		return
	}
	for _, p := range postings {
		fmt.Println(p.TranscriptID + "\t" + strconv.Itoa(p.Position))
	}
}
