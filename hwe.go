// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

var ErrInvalidFrequency = errors.New("invalid allele frequency")

// probDriftMax is how far the HWE probability vector may stray from
// summing to 1 before renormalization is refused.
const probDriftMax = 1e-6

// genotypeProbs returns the Hardy-Weinberg genotype distribution
// [q², 2pq, p²] over alt-allele copy counts {0, 1, 2} for allele
// frequency p. The vector is renormalized once if floating error
// leaves it slightly off 1.
func genotypeProbs(p float64) ([3]float64, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return [3]float64{}, fmt.Errorf("allele frequency %v outside [0,1]: %w", p, ErrInvalidFrequency)
	}
	q := 1 - p
	probs := [3]float64{q * q, 2 * p * q, p * p}
	sum := probs[0] + probs[1] + probs[2]
	if math.Abs(sum-1) > probDriftMax {
		return [3]float64{}, fmt.Errorf("genotype probabilities sum to %v: %w", sum, ErrInvalidFrequency)
	}
	if sum != 1 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return probs, nil
}

// drawGenotype draws one diploid genotype (0, 1, or 2 alt copies)
// from the categorical distribution probs, consuming a single uniform
// variate from src.
func drawGenotype(probs [3]float64, src rand.Source) uint16 {
	u := rand.New(src).Float64()
	switch {
	case u < probs[0]:
		return 0
	case u < probs[0]+probs[1]:
		return 1
	default:
		return 2
	}
}
