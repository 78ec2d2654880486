// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"errors"
	"math"

	"gopkg.in/check.v1"
)

type interactionSuite struct{}

var _ = check.Suite(&interactionSuite{})

func (s *interactionSuite) TestClassification(c *check.C) {
	for _, trial := range []struct {
		text string
		want Classification
	}{
		{"Pathogenic", Pathogenic},
		{"pathogenic", Pathogenic},
		{"Likely pathogenic", LikelyPathogenic},
		{"Likely_pathogenic", LikelyPathogenic},
		{" likely pathogenic ", LikelyPathogenic},
	} {
		got, err := parseClassification(trial.text)
		c.Assert(err, check.IsNil, check.Commentf("%q", trial.text))
		c.Check(got, check.Equals, trial.want)
	}
	for _, text := range []string{"Benign", "Uncertain significance", "VUS", ""} {
		_, err := parseClassification(text)
		c.Check(errors.Is(err, ErrUnsupportedClassification), check.Equals, true, check.Commentf("%q", text))
	}
}

func (s *interactionSuite) TestAnchor(c *check.C) {
	a, err := anchorValue(Pathogenic)
	c.Assert(err, check.IsNil)
	c.Check(a, check.Equals, 0.8)
	a, err = anchorValue(LikelyPathogenic)
	c.Assert(err, check.IsNil)
	c.Check(a, check.Equals, 0.5)
	_, err = anchorValue(Classification(99))
	c.Check(errors.Is(err, ErrUnsupportedClassification), check.Equals, true)
}

func (s *interactionSuite) TestModifierPartition(c *check.C) {
	for _, trial := range []struct {
		r    float64
		want float64
	}{
		{0, 1.2},
		{0.49, 1.2},
		{0.5, 1.0}, // boundary belongs to the neutral zone
		{1.0, 1.0},
		{1.5, 1.0}, // boundary belongs to the neutral zone
		{1.51, 0.8},
		{100, 0.8},
	} {
		c.Check(ancestralModifier(trial.r), check.Equals, trial.want, check.Commentf("R=%v", trial.r))
	}
}

func (s *interactionSuite) TestDiscretize(c *check.C) {
	for _, trial := range []struct {
		score float64
		want  Label
	}{
		{0.97, LabelFastProgression},
		{0.86, LabelFastProgression},
		{0.85, LabelSlowProgression}, // closed upper edge of the slow band
		{0.65, LabelSlowProgression},
		{0.61, LabelSlowProgression},
		{0.60, LabelAsymptomatic}, // closed upper edge of the asymptomatic band
		{0, LabelAsymptomatic},
		{-3, LabelAsymptomatic},
	} {
		c.Check(discretize(trial.score), check.Equals, trial.want, check.Commentf("S=%v", trial.score))
	}
}

// Reference scenario: a Pathogenic variant with global AF 0.00005 is
// tolerated where it is relatively common (EUR, AF 0.0001) and severe
// where it is depleted (AFR, AF 0.00001).
func (s *interactionSuite) TestReferenceScenario(c *check.C) {
	eps := 0.01

	r, err := ancestralRatio(0.0001, 0.00005)
	c.Assert(err, check.IsNil)
	c.Check(r, check.Equals, 2.0)
	m := ancestralModifier(r)
	c.Check(m, check.Equals, 0.8)
	i, err := anchorValue(Pathogenic)
	c.Assert(err, check.IsNil)
	score := i*m + eps
	c.Check(math.Abs(score-0.65) < 1e-12, check.Equals, true, check.Commentf("S=%v", score))
	c.Check(discretize(score), check.Equals, LabelSlowProgression)

	r, err = ancestralRatio(0.00001, 0.00005)
	c.Assert(err, check.IsNil)
	c.Check(r, check.Equals, 0.2)
	m = ancestralModifier(r)
	c.Check(m, check.Equals, 1.2)
	score = i*m + eps
	c.Check(math.Abs(score-0.97) < 1e-12, check.Equals, true, check.Commentf("S=%v", score))
	c.Check(discretize(score), check.Equals, LabelFastProgression)
}

func (s *interactionSuite) TestScoreDeterminism(c *check.C) {
	v := Variant{
		ID:           "rs200",
		Gene:         "PAH",
		Significance: "Pathogenic",
		GlobalAF:     0.00005,
		PopAF:        map[string]float64{"EUR": 0.0001, "AFR": 0.00001},
	}
	rec1, err := scoreInteraction(v, "EUR", 0.05, noiseSource(42, v.ID, "EUR"))
	c.Assert(err, check.IsNil)
	rec2, err := scoreInteraction(v, "EUR", 0.05, noiseSource(42, v.ID, "EUR"))
	c.Assert(err, check.IsNil)
	c.Check(rec1, check.DeepEquals, rec2)
	c.Check(rec1.Score, check.Equals, rec1.Anchor*rec1.Modifier+rec1.Noise)
	c.Check(rec1.Label, check.Equals, discretize(rec1.Score))

	// Different unit, different stream.
	rec3, err := scoreInteraction(v, "AFR", 0.05, noiseSource(42, v.ID, "AFR"))
	c.Assert(err, check.IsNil)
	c.Check(rec3.Noise == rec1.Noise, check.Equals, false)
}

func (s *interactionSuite) TestScoreRejectsUnknownClassification(c *check.C) {
	v := Variant{
		ID:           "rs201",
		Significance: "Benign",
		GlobalAF:     0.00005,
		PopAF:        map[string]float64{"EUR": 0.0001},
	}
	_, err := scoreInteraction(v, "EUR", 0.05, noiseSource(42, v.ID, "EUR"))
	c.Check(errors.Is(err, ErrUnsupportedClassification), check.Equals, true)
}

func (s *interactionSuite) TestZeroSigma(c *check.C) {
	v := Variant{
		ID:           "rs202",
		Significance: "Likely pathogenic",
		GlobalAF:     0.0001,
		PopAF:        map[string]float64{"EUR": 0.0001},
	}
	rec, err := scoreInteraction(v, "EUR", 0, noiseSource(7, v.ID, "EUR"))
	c.Assert(err, check.IsNil)
	c.Check(rec.Noise, check.Equals, 0.0)
	c.Check(rec.Score, check.Equals, 0.5)
	c.Check(rec.Label, check.Equals, LabelAsymptomatic)
}
