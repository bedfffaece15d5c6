// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package context computes local sequence-composition features around a
// candidate off-target site: AU content and an accessibility proxy.
//
// Both features are pure functions of an already-extracted window, so the
// caller (typically the orchestrator, via internal/store.Window) decides
// how the window is centered and sized; this package only interprets it.
package context

import (
	"fmt"
	"math"

	"github.com/sirnaoff/offtarget/internal/codec"
)

const (
	// AUWindowRadius is the radius, in bases, of the window AUContent
	// expects: a 61-base window (30 each side plus the center).
	AUWindowRadius = 30

	// AccessibilityWindowRadius is the radius, in bases, of the window
	// DefaultAccessibility expects: a 21-base window (10 each side plus
	// the center).
	AccessibilityWindowRadius = 10
)

// AUContent returns the percentage, to 2 decimal places, of bases in
// window that are A or U.
func AUContent(window codec.RNA) float64 {
	if len(window) == 0 {
		return 0
	}
	var n int
	for i := 0; i < len(window); i++ {
		switch window[i] {
		case 'A', 'U':
			n++
		}
	}
	pct := float64(n) / float64(len(window)) * 100
	return math.Round(pct*100) / 100
}

// AccessibilityFunc computes a deterministic accessibility score in [0,1]
// from a target window; 1 means fully accessible, 0 means fully
// structured. Implementations MAY call out to a real structure predictor
// (see internal/fold) provided they remain deterministic given the window.
type AccessibilityFunc func(window codec.RNA) (float64, error)

// DefaultAccessibility is the built-in accessibility proxy: 1 minus the
// fraction of window that is G or C. It never errors on a non-empty
// window.
func DefaultAccessibility(window codec.RNA) (float64, error) {
	if len(window) == 0 {
		return 0, fmt.Errorf("context: accessibility: empty window")
	}
	var gc int
	for i := 0; i < len(window); i++ {
		switch window[i] {
		case 'G', 'C':
			gc++
		}
	}
	return 1 - float64(gc)/float64(len(window)), nil
}
