// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thermo

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/sirnaoff/offtarget/internal/codec"
)

// Table holds the nearest-neighbor stacking parameters and the flat
// mismatch penalty, both at 37 °C in kcal/mol. nn is a 16x16 matrix indexed
// by 4*base(5')+base(3') for each strand; only the diagonal (a dinucleotide
// paired against its own sequence, i.e. a true Watson-Crick duplex step) is
// populated, since every non-diagonal context is either an unannotated
// unknown (contributes 0) or resolved through mismatch instead.
type Table struct {
	nn       *mat.Dense
	mismatch float64
}

// dinucIndex returns the row/column index for the dinucleotide b0b1.
func dinucIndex(b0, b1 codec.Base) int {
	return int(b0)*4 + int(b1)
}

// parseTable reads the embedded CSV resource into a Table. The CSV has one
// row per canonical dinucleotide ("AA".."UU") giving its stacking free
// energy, plus a single "MM" row giving the flat mismatch penalty.
func parseTable(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("thermo: parse table: %w", err)
	}
	if len(header) != 2 || header[0] != "dinuc" || header[1] != "value" {
		return nil, fmt.Errorf("thermo: parse table: unexpected header %v", header)
	}

	nn := mat.NewDense(16, 16, nil)
	var mismatch float64
	var sawMismatch bool
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("thermo: parse table: %w", err)
		}
		if len(rec) != 2 {
			return nil, fmt.Errorf("thermo: parse table: malformed row %v", rec)
		}
		var value float64
		if _, err := fmt.Sscanf(rec[1], "%g", &value); err != nil {
			return nil, fmt.Errorf("thermo: parse table: bad value %q: %w", rec[1], err)
		}
		if rec[0] == "MM" {
			mismatch = value
			sawMismatch = true
			continue
		}
		bases, err := codec.Normalize(rec[0])
		if err != nil || len(bases) != 2 {
			return nil, fmt.Errorf("thermo: parse table: bad dinucleotide %q", rec[0])
		}
		idx := dinucIndex(codec.Bases(bases)[0], codec.Bases(bases)[1])
		nn.Set(idx, idx, value)
	}
	if !sawMismatch {
		return nil, fmt.Errorf("thermo: parse table: missing MM row")
	}
	return &Table{nn: nn, mismatch: mismatch}, nil
}

// wcStackEnergy returns the stacking free energy for a fully Watson-Crick
// paired step whose 5' and 3' bases are b0 and b1.
func (t *Table) wcStackEnergy(b0, b1 codec.Base) float64 {
	idx := dinucIndex(b0, b1)
	return t.nn.At(idx, idx)
}
