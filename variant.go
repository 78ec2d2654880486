// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrUnsupportedClassification = errors.New("unsupported clinical significance classification")

// Classification is the closed clinical-significance taxonomy. Any
// annotation string outside it is rejected, never defaulted.
type Classification int

const (
	Pathogenic Classification = iota
	LikelyPathogenic
)

func (c Classification) String() string {
	switch c {
	case Pathogenic:
		return "Pathogenic"
	case LikelyPathogenic:
		return "Likely pathogenic"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

func parseClassification(s string) (Classification, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", " ")) {
	case "pathogenic":
		return Pathogenic, nil
	case "likely pathogenic":
		return LikelyPathogenic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedClassification, s)
	}
}

// Variant is one row of the input annotation table. Immutable once
// loaded.
type Variant struct {
	ID           string
	Gene         string
	Significance string // raw annotation text, parsed during table build
	GlobalAF     float64
	PopAF        map[string]float64
}

// RejectedVariant records a variant skipped during generation, and
// why.
type RejectedVariant struct {
	Variant string
	Reason  string
}

// LoadVariants reads the annotation CSV produced by the ingestion
// side. The header must contain variant_id, gene, clinical_sig,
// af_global, and one af_<population> column per configured
// population; a missing column is fatal. Rows with a non-numeric or
// empty global AF are rejected, not fatal; empty per-population cells
// leave that population out of the variant's frequency map.
func LoadVariants(r io.Reader, populations []string) ([]Variant, []RejectedVariant, error) {
	csvr := csv.NewReader(r)
	header, err := csvr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read annotation header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, want := range []string{"variant_id", "gene", "clinical_sig", "af_global"} {
		if _, ok := col[want]; !ok {
			return nil, nil, fmt.Errorf("%w: annotation table has no %q column", ErrConfiguration, want)
		}
	}
	popcol := map[string]int{}
	for _, pop := range populations {
		c, ok := col["af_"+strings.ToLower(pop)]
		if !ok {
			return nil, nil, fmt.Errorf("%w: annotation table has no allele frequency column for configured population %q", ErrConfiguration, pop)
		}
		popcol[pop] = c
	}

	var variants []Variant
	var rejected []RejectedVariant
	for line := 2; ; line++ {
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, fmt.Errorf("read annotation line %d: %w", line, err)
		}
		v := Variant{
			ID:           strings.TrimSpace(rec[col["variant_id"]]),
			Gene:         strings.TrimSpace(rec[col["gene"]]),
			Significance: rec[col["clinical_sig"]],
			PopAF:        make(map[string]float64, len(populations)),
		}
		if v.ID == "" {
			rejected = append(rejected, RejectedVariant{Variant: fmt.Sprintf("line %d", line), Reason: "empty variant_id"})
			continue
		}
		v.GlobalAF, err = strconv.ParseFloat(strings.TrimSpace(rec[col["af_global"]]), 64)
		if err != nil {
			rejected = append(rejected, RejectedVariant{Variant: v.ID, Reason: "non-numeric global allele frequency"})
			continue
		}
		bad := false
		for pop, c := range popcol {
			cell := strings.TrimSpace(rec[c])
			if cell == "" {
				continue
			}
			af, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				rejected = append(rejected, RejectedVariant{Variant: v.ID, Reason: fmt.Sprintf("non-numeric %s allele frequency", pop)})
				bad = true
				break
			}
			v.PopAF[pop] = af
		}
		if bad {
			continue
		}
		variants = append(variants, v)
	}
	return variants, rejected, nil
}
