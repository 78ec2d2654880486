// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"errors"
	"fmt"
)

var ErrDegenerateFrequency = errors.New("degenerate allele frequency")

// AmplifiedFrequency is one (variant, population) entry of the
// amplified-frequency table. Clamped means the raw dynamic range of
// the variant exceeded what the target range can represent under a
// single scale factor, and this value was pulled up to the lower
// bound instead of preserving its ratio.
type AmplifiedFrequency struct {
	Variant     string
	Population  string
	RawAF       float64
	AmplifiedAF float64
	Clamped     bool
}

type freqKey struct {
	variant    string
	population string
}

// FrequencyTable maps (variant, population) to its amplified allele
// frequency. Built once, then read-only.
type FrequencyTable struct {
	byKey   map[freqKey]AmplifiedFrequency
	records []AmplifiedFrequency
}

func newFrequencyTable() *FrequencyTable {
	return &FrequencyTable{byKey: map[freqKey]AmplifiedFrequency{}}
}

func (t *FrequencyTable) add(rec AmplifiedFrequency) {
	t.byKey[freqKey{rec.Variant, rec.Population}] = rec
	t.records = append(t.records, rec)
}

func (t *FrequencyTable) Lookup(variant, population string) (AmplifiedFrequency, bool) {
	rec, ok := t.byKey[freqKey{variant, population}]
	return rec, ok
}

// Records returns all entries in insertion order (variant-major,
// population order as configured).
func (t *FrequencyTable) Records() []AmplifiedFrequency {
	return t.records
}

// amplifyVariant rescales one variant's raw per-population allele
// frequencies into [targetMin, targetMax]. A single scale factor maps
// the largest raw frequency to targetMax, so the ratio between any
// two populations' amplified values equals the ratio of their raw
// values unless clamping intervenes.
func amplifyVariant(v Variant, populations []string, targetMin, targetMax float64) ([]AmplifiedFrequency, error) {
	if !(v.GlobalAF > 0) {
		return nil, fmt.Errorf("variant %s: global allele frequency %v: %w", v.ID, v.GlobalAF, ErrDegenerateFrequency)
	}
	maxRaw := 0.0
	for _, pop := range populations {
		raw, ok := v.PopAF[pop]
		if !ok {
			return nil, fmt.Errorf("%w: variant %s has no allele frequency for configured population %s", ErrConfiguration, v.ID, pop)
		}
		if raw < 0 || raw > 1 {
			return nil, fmt.Errorf("variant %s: %s allele frequency %v outside [0,1]: %w", v.ID, pop, raw, ErrInvalidFrequency)
		}
		if raw > maxRaw {
			maxRaw = raw
		}
	}
	if maxRaw == 0 {
		return nil, fmt.Errorf("variant %s: all population allele frequencies are zero: %w", v.ID, ErrDegenerateFrequency)
	}
	scale := targetMax / maxRaw
	out := make([]AmplifiedFrequency, 0, len(populations))
	for _, pop := range populations {
		raw := v.PopAF[pop]
		rec := AmplifiedFrequency{
			Variant:     v.ID,
			Population:  pop,
			RawAF:       raw,
			AmplifiedAF: raw * scale,
		}
		if rec.AmplifiedAF < targetMin {
			rec.AmplifiedAF = targetMin
			rec.Clamped = true
		}
		out = append(out, rec)
	}
	return out, nil
}

// ancestralRatio computes R = AF_population / AF_global from raw
// (pre-amplification) frequencies. R = 0 is valid and marks the
// extreme aggravating end; a zero global frequency leaves the ratio
// undefined.
func ancestralRatio(popAF, globalAF float64) (float64, error) {
	if !(globalAF > 0) {
		return 0, fmt.Errorf("global allele frequency %v: %w", globalAF, ErrDegenerateFrequency)
	}
	return popAF / globalAF, nil
}
