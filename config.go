// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var ErrConfiguration = errors.New("configuration error")

// DefaultPopulations are the five gnomAD superpopulations used as
// ancestral nodes.
var DefaultPopulations = []string{"AFR", "AMR", "EAS", "EUR", "SAS"}

// Config collects every knob of the generation core. Configuration
// errors are fatal and reported before any generation begins.
type Config struct {
	TargetMin   float64
	TargetMax   float64
	Sigma       float64
	Patients    int
	Populations []string
	Proportions map[string]float64
	Seed        int64
	MaxWorkers  int

	proportionArg string
}

func DefaultConfig() Config {
	cfg := Config{
		TargetMin:   1e-4,
		TargetMax:   2e-3,
		Sigma:       0.05,
		Patients:    15000,
		Populations: DefaultPopulations,
		Proportions: map[string]float64{},
	}
	for _, pop := range cfg.Populations {
		cfg.Proportions[pop] = 1 / float64(len(cfg.Populations))
	}
	return cfg
}

func (cfg *Config) Flags(flags *flag.FlagSet) {
	flags.Float64Var(&cfg.TargetMin, "target-min", cfg.TargetMin, "lower bound of amplified allele frequency range")
	flags.Float64Var(&cfg.TargetMax, "target-max", cfg.TargetMax, "upper bound of amplified allele frequency range")
	flags.Float64Var(&cfg.Sigma, "sigma", cfg.Sigma, "standard deviation of severity score noise")
	flags.IntVar(&cfg.Patients, "patients", cfg.Patients, "total `number` of patients across all ancestral nodes")
	flags.Int64Var(&cfg.Seed, "random-seed", 0, "PRNG seed")
	flags.IntVar(&cfg.MaxWorkers, "max-workers", 0, "maximum concurrent workers (0 = GOMAXPROCS)")
	flags.StringVar(&cfg.proportionArg, "proportions", "", "per-node patient `proportions`, e.g. EUR=0.4,AFR=0.15,... (default equal split)")
}

// ParseFlags finishes flag handling that cannot happen in the flag
// package: the proportion map.
func (cfg *Config) ParseFlags() error {
	if cfg.proportionArg == "" {
		return nil
	}
	props := map[string]float64{}
	for _, kv := range strings.Split(cfg.proportionArg, ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("%w: malformed proportion %q", ErrConfiguration, kv)
		}
		p, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: malformed proportion %q", ErrConfiguration, kv)
		}
		props[strings.TrimSpace(name)] = p
	}
	cfg.Proportions = props
	return nil
}

// Check validates the configuration. Any error here aborts the run
// before generation starts.
func (cfg *Config) Check() error {
	if cfg.Patients <= 0 {
		return fmt.Errorf("%w: total patient count %d must be positive", ErrConfiguration, cfg.Patients)
	}
	if !(cfg.TargetMin > 0) || !(cfg.TargetMax > cfg.TargetMin) {
		return fmt.Errorf("%w: amplification target range [%v, %v] is not a positive interval", ErrConfiguration, cfg.TargetMin, cfg.TargetMax)
	}
	if cfg.TargetMax > 1 {
		return fmt.Errorf("%w: amplification target max %v exceeds 1", ErrConfiguration, cfg.TargetMax)
	}
	if cfg.Sigma < 0 {
		return fmt.Errorf("%w: noise standard deviation %v is negative", ErrConfiguration, cfg.Sigma)
	}
	if len(cfg.Populations) == 0 {
		return fmt.Errorf("%w: no ancestral nodes configured", ErrConfiguration)
	}
	sum := 0.0
	for _, pop := range cfg.Populations {
		p, ok := cfg.Proportions[pop]
		if !ok {
			return fmt.Errorf("%w: no patient proportion for configured node %s", ErrConfiguration, pop)
		}
		if p < 0 {
			return fmt.Errorf("%w: negative patient proportion for node %s", ErrConfiguration, pop)
		}
		sum += p
	}
	if len(cfg.Proportions) != len(cfg.Populations) {
		extra := []string{}
		for name := range cfg.Proportions {
			found := false
			for _, pop := range cfg.Populations {
				if pop == name {
					found = true
				}
			}
			if !found {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		return fmt.Errorf("%w: proportions given for unknown nodes %v", ErrConfiguration, extra)
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: patient proportions sum to %v, want 1", ErrConfiguration, sum)
	}
	return nil
}

// NodeCounts partitions the total patient count across nodes, in
// configured node order. Whole counts come from rounding down;
// leftover patients go to the nodes with the largest remainders, ties
// broken by node order, so the counts always sum to cfg.Patients
// exactly.
func (cfg *Config) NodeCounts() []int {
	n := len(cfg.Populations)
	counts := make([]int, n)
	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, n)
	assigned := 0
	for i, pop := range cfg.Populations {
		exact := cfg.Proportions[pop] * float64(cfg.Patients)
		counts[i] = int(math.Floor(exact))
		assigned += counts[i]
		rems[i] = rem{idx: i, frac: exact - math.Floor(exact)}
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for i := 0; assigned < cfg.Patients; i++ {
		counts[rems[i%n].idx]++
		assigned++
	}
	return counts
}
