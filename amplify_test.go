// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"errors"
	"math"

	"gopkg.in/check.v1"
)

type amplifySuite struct{}

var _ = check.Suite(&amplifySuite{})

var testPopulations = []string{"AFR", "AMR", "EAS", "EUR", "SAS"}

func (s *amplifySuite) TestBoundsAndRatios(c *check.C) {
	v := Variant{
		ID:       "rs100",
		GlobalAF: 0.00005,
		PopAF: map[string]float64{
			"AFR": 0.00001,
			"AMR": 0.00003,
			"EAS": 0.00002,
			"EUR": 0.0001,
			"SAS": 0.00004,
		},
	}
	freqs, err := amplifyVariant(v, testPopulations, 1e-4, 2e-3)
	c.Assert(err, check.IsNil)
	c.Assert(freqs, check.HasLen, 5)
	byPop := map[string]AmplifiedFrequency{}
	for _, f := range freqs {
		c.Check(f.AmplifiedAF >= 1e-4, check.Equals, true, check.Commentf("%s: %g", f.Population, f.AmplifiedAF))
		c.Check(f.AmplifiedAF <= 2e-3, check.Equals, true, check.Commentf("%s: %g", f.Population, f.AmplifiedAF))
		c.Check(f.Clamped, check.Equals, false)
		byPop[f.Population] = f
	}
	// Largest raw frequency lands on the upper bound.
	c.Check(byPop["EUR"].AmplifiedAF, check.Equals, 2e-3)
	// Cross-population ratios survive amplification.
	for _, p1 := range testPopulations {
		for _, p2 := range testPopulations {
			got := byPop[p1].AmplifiedAF / byPop[p2].AmplifiedAF
			want := v.PopAF[p1] / v.PopAF[p2]
			c.Check(math.Abs(got-want)/want < 1e-6, check.Equals, true,
				check.Commentf("%s/%s: got ratio %g, want %g", p1, p2, got, want))
		}
	}
}

func (s *amplifySuite) TestClamping(c *check.C) {
	// Dynamic range 1000 exceeds what [1e-4, 2e-3] can hold under one
	// scale factor.
	v := Variant{
		ID:       "rs101",
		GlobalAF: 0.0001,
		PopAF: map[string]float64{
			"AFR": 0.000001,
			"AMR": 0.001,
			"EAS": 0.0005,
			"EUR": 0.001,
			"SAS": 0,
		},
	}
	freqs, err := amplifyVariant(v, testPopulations, 1e-4, 2e-3)
	c.Assert(err, check.IsNil)
	for _, f := range freqs {
		switch f.Population {
		case "AFR", "SAS":
			c.Check(f.Clamped, check.Equals, true, check.Commentf("%s", f.Population))
			c.Check(f.AmplifiedAF, check.Equals, 1e-4)
		default:
			c.Check(f.Clamped, check.Equals, false, check.Commentf("%s", f.Population))
		}
	}
}

func (s *amplifySuite) TestDegenerate(c *check.C) {
	v := Variant{ID: "rs102", GlobalAF: 0, PopAF: map[string]float64{
		"AFR": 0.0001, "AMR": 0.0001, "EAS": 0.0001, "EUR": 0.0001, "SAS": 0.0001,
	}}
	_, err := amplifyVariant(v, testPopulations, 1e-4, 2e-3)
	c.Check(errors.Is(err, ErrDegenerateFrequency), check.Equals, true)

	v.GlobalAF = 0.0001
	for pop := range v.PopAF {
		v.PopAF[pop] = 0
	}
	_, err = amplifyVariant(v, testPopulations, 1e-4, 2e-3)
	c.Check(errors.Is(err, ErrDegenerateFrequency), check.Equals, true)
}

func (s *amplifySuite) TestMissingPopulation(c *check.C) {
	v := Variant{ID: "rs103", GlobalAF: 0.0001, PopAF: map[string]float64{
		"AFR": 0.0001, "AMR": 0.0001, "EAS": 0.0001, "EUR": 0.0001,
	}}
	_, err := amplifyVariant(v, testPopulations, 1e-4, 2e-3)
	c.Check(errors.Is(err, ErrConfiguration), check.Equals, true)
}

func (s *amplifySuite) TestInvalidRawFrequency(c *check.C) {
	v := Variant{ID: "rs104", GlobalAF: 0.0001, PopAF: map[string]float64{
		"AFR": 1.5, "AMR": 0.0001, "EAS": 0.0001, "EUR": 0.0001, "SAS": 0.0001,
	}}
	_, err := amplifyVariant(v, testPopulations, 1e-4, 2e-3)
	c.Check(errors.Is(err, ErrInvalidFrequency), check.Equals, true)
}

func (s *amplifySuite) TestAncestralRatio(c *check.C) {
	r, err := ancestralRatio(0.0001, 0.00005)
	c.Assert(err, check.IsNil)
	c.Check(r, check.Equals, 2.0)

	// Zero population frequency is a valid ratio, the extreme
	// aggravating end.
	r, err = ancestralRatio(0, 0.00005)
	c.Assert(err, check.IsNil)
	c.Check(r, check.Equals, 0.0)

	_, err = ancestralRatio(0.0001, 0)
	c.Check(errors.Is(err, ErrDegenerateFrequency), check.Equals, true)
}
