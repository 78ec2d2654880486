// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Label is a discrete phenotype. Values are ordered by severity so
// the most severe label across carried variants is the numeric
// maximum.
type Label int

const (
	LabelAsymptomatic Label = iota
	LabelSlowProgression
	LabelFastProgression
)

func (l Label) String() string {
	switch l {
	case LabelFastProgression:
		return "Fast Progression"
	case LabelSlowProgression:
		return "Slow Progression"
	case LabelAsymptomatic:
		return "Asymptomatic / Low Penetrance"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

func parseLabel(s string) (Label, error) {
	for _, l := range []Label{LabelAsymptomatic, LabelSlowProgression, LabelFastProgression} {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown phenotype label %q", s)
}

// InteractionRecord is the audit trail for one (variant, population)
// scoring: anchor I, ancestral modifier M, sampled noise ε, score
// S = I×M + ε, and the discretized label.
type InteractionRecord struct {
	Variant    string
	Population string
	Ratio      float64
	Anchor     float64
	Modifier   float64
	Noise      float64
	Score      float64
	Label      Label
}

func anchorValue(c Classification) (float64, error) {
	switch c {
	case Pathogenic:
		return 0.8, nil
	case LikelyPathogenic:
		return 0.5, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedClassification, c)
	}
}

// ancestralModifier partitions the ratio axis three ways. The neutral
// zone is the closed interval [0.5, 1.5]; only strictly outside it
// does ancestry modify severity.
func ancestralModifier(r float64) float64 {
	switch {
	case r > 1.5:
		return 0.8 // variant common in this ancestry: tolerant
	case r < 0.5:
		return 1.2 // variant depleted in this ancestry: aggravating
	default:
		return 1.0
	}
}

// discretize maps a severity score to a phenotype label. Total and
// deterministic; both band edges belong to the lower label.
func discretize(s float64) Label {
	switch {
	case s > 0.85:
		return LabelFastProgression
	case s > 0.60:
		return LabelSlowProgression
	default:
		return LabelAsymptomatic
	}
}

// scoreInteraction computes the interaction record for one variant in
// one population. The noise draw comes from the caller-supplied
// source, so identical seeds reproduce identical scores.
func scoreInteraction(v Variant, population string, sigma float64, src rand.Source) (InteractionRecord, error) {
	class, err := parseClassification(v.Significance)
	if err != nil {
		return InteractionRecord{}, fmt.Errorf("variant %s: %w", v.ID, err)
	}
	anchor, err := anchorValue(class)
	if err != nil {
		return InteractionRecord{}, fmt.Errorf("variant %s: %w", v.ID, err)
	}
	ratio, err := ancestralRatio(v.PopAF[population], v.GlobalAF)
	if err != nil {
		return InteractionRecord{}, fmt.Errorf("variant %s: %w", v.ID, err)
	}
	rec := InteractionRecord{
		Variant:    v.ID,
		Population: population,
		Ratio:      ratio,
		Anchor:     anchor,
		Modifier:   ancestralModifier(ratio),
	}
	rec.Noise = distuv.Normal{Mu: 0, Sigma: sigma, Src: src}.Rand()
	rec.Score = rec.Anchor*rec.Modifier + rec.Noise
	rec.Label = discretize(rec.Score)
	return rec, nil
}
