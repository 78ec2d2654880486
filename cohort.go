// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"fmt"
	"runtime"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Patient is one synthetic cohort member. Genotypes is indexed by
// variant column, parallel to Cohort.Variants. Frozen after assembly.
type Patient struct {
	ID        string
	Node      string
	Genotypes []uint16
	Label     Label
}

// Cohort is the full output of one generation run.
type Cohort struct {
	Variants     []Variant
	Frequencies  *FrequencyTable
	Interactions []InteractionRecord
	Patients     []Patient
	Rejected     []RejectedVariant

	interactionByKey map[freqKey]InteractionRecord
}

// buildTables amplifies and scores every variant. Variants that fail
// amplification, ratio computation, or classification parsing are
// rejected individually; generation continues with the rest.
func buildTables(variants []Variant, cfg Config) (accepted []Variant, table *FrequencyTable, interactions []InteractionRecord, rejected []RejectedVariant) {
	table = newFrequencyTable()
	seed := uint64(cfg.Seed)
	for _, v := range variants {
		freqs, err := amplifyVariant(v, cfg.Populations, cfg.TargetMin, cfg.TargetMax)
		if err != nil {
			rejected = append(rejected, RejectedVariant{Variant: v.ID, Reason: err.Error()})
			continue
		}
		recs := make([]InteractionRecord, 0, len(cfg.Populations))
		bad := false
		for _, pop := range cfg.Populations {
			rec, err := scoreInteraction(v, pop, cfg.Sigma, noiseSource(seed, v.ID, pop))
			if err != nil {
				rejected = append(rejected, RejectedVariant{Variant: v.ID, Reason: err.Error()})
				bad = true
				break
			}
			recs = append(recs, rec)
		}
		if bad {
			continue
		}
		// Amplified values are inside the target range, but check the
		// HWE vector anyway so a bad frequency rejects the variant
		// here instead of failing mid-assembly.
		for _, f := range freqs {
			if _, err := genotypeProbs(f.AmplifiedAF); err != nil {
				rejected = append(rejected, RejectedVariant{Variant: v.ID, Reason: err.Error()})
				bad = true
				break
			}
		}
		if bad {
			continue
		}
		for _, f := range freqs {
			table.add(f)
		}
		interactions = append(interactions, recs...)
		accepted = append(accepted, v)
	}
	return
}

// AssembleCohort builds the full genotype×phenotype matrix: partition
// patients across ancestral nodes, draw a HWE genotype per (patient,
// variant), and label each patient with the most severe phenotype
// across carried variants. The caller must have run cfg.Check.
func AssembleCohort(variants []Variant, cfg Config) (*Cohort, error) {
	accepted, table, interactions, rejected := buildTables(variants, cfg)
	cohort := &Cohort{
		Variants:         accepted,
		Frequencies:      table,
		Interactions:     interactions,
		Rejected:         rejected,
		interactionByKey: map[freqKey]InteractionRecord{},
	}
	for _, rec := range interactions {
		cohort.interactionByKey[freqKey{rec.Variant, rec.Population}] = rec
	}

	counts := cfg.NodeCounts()
	cohort.Patients = make([]Patient, cfg.Patients)
	row := 0
	for i, pop := range cfg.Populations {
		for j := 0; j < counts[i]; j++ {
			cohort.Patients[row] = Patient{
				ID:   fmt.Sprintf("%s-%05d", pop, j),
				Node: pop,
			}
			row++
		}
	}

	// Per-node HWE distributions, one per variant column.
	probsByNode := map[string][][3]float64{}
	for _, pop := range cfg.Populations {
		probs := make([][3]float64, len(accepted))
		for col, v := range accepted {
			f, ok := table.Lookup(v.ID, pop)
			if !ok {
				return nil, fmt.Errorf("internal: no amplified frequency for variant %s node %s", v.ID, pop)
			}
			var err error
			probs[col], err = genotypeProbs(f.AmplifiedAF)
			if err != nil {
				return nil, fmt.Errorf("variant %s node %s: %w", v.ID, pop, err)
			}
		}
		probsByNode[pop] = probs
	}

	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	seed := uint64(cfg.Seed)
	var group errgroup.Group
	group.SetLimit(workers)
	const batchSize = 512
	for start := 0; start < len(cohort.Patients); start += batchSize {
		end := start + batchSize
		if end > len(cohort.Patients) {
			end = len(cohort.Patients)
		}
		start, end := start, end
		group.Go(func() error {
			for row := start; row < end; row++ {
				patient := &cohort.Patients[row]
				probs := probsByNode[patient.Node]
				patient.Genotypes = make([]uint16, len(accepted))
				for col, v := range accepted {
					patient.Genotypes[col] = drawGenotype(probs[col], genotypeSource(seed, v.ID, patient.Node, row))
				}
				patient.Label = patientLabel(patient.Genotypes, accepted, patient.Node, cohort.interactionByKey)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	log.Infof("assembled %d patients × %d variants (%d variants rejected)", len(cohort.Patients), len(accepted), len(rejected))
	return cohort, nil
}

// patientLabel applies the aggregation policy: the most severe label
// across carried variants, Asymptomatic / Low Penetrance when nothing
// is carried.
func patientLabel(genotypes []uint16, variants []Variant, node string, interactions map[freqKey]InteractionRecord) Label {
	label := LabelAsymptomatic
	for col, v := range variants {
		if genotypes[col] < 1 {
			continue
		}
		if rec, ok := interactions[freqKey{v.ID, node}]; ok && rec.Label > label {
			label = rec.Label
		}
	}
	return label
}
