// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/stat/distuv"
)

var glmConfig = &glm.Config{
	Family:         glm.NewFamily(glm.BinomialFamily),
	FitMethod:      "IRLS",
	ConcurrentIRLS: 1000,
	Log:            log.New(io.Discard, "", 0),
}

type verifier struct {
	alpha float64
}

type hweFailure struct {
	Variant    string
	Population string
	PValue     float64
}

func (cmd *verifier) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	inputDir := flags.String("input-dir", "./cohort", "cohort `directory` written by generate")
	outputFilename := flags.String("o", "-", "output `file`")
	flags.Float64Var(&cmd.alpha, "alpha", 1e-4, "flag HWE goodness-of-fit p-values below `P`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(*outputFilename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0777)
		if err != nil {
			return 1
		}
		defer output.Close()
	}

	bufw := bufio.NewWriter(output)
	err = cmd.verify(*inputDir, bufw)
	if err != nil {
		return 1
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

func (cmd *verifier) verify(dir string, output io.Writer) error {
	genotypes, rows, cols, err := ReadGenotypes(dir)
	if err != nil {
		return err
	}
	patients, err := readPatients(dir)
	if err != nil {
		return err
	}
	if len(patients) != rows {
		return fmt.Errorf("%s has %d rows but %s has %d patients", genotypesFilename, rows, patientsFilename, len(patients))
	}
	variantIDs, err := readVariantIDs(dir)
	if err != nil {
		return err
	}
	if len(variantIDs) != cols {
		return fmt.Errorf("%s has %d columns but %s has %d variants", genotypesFilename, cols, variantsFilename, len(variantIDs))
	}
	amplified, err := readAmplified(dir)
	if err != nil {
		return err
	}

	var ret struct {
		HWETests    int
		HWEWorstP   float64
		HWEFailures []hweFailure
		// nil when the regression cannot be fit, e.g. no affected
		// patients in a small cohort
		AssociationP *float64 `json:",omitempty"`
	}
	ret.HWEWorstP = 1

	// Observed genotype counts per (variant, node).
	type cell struct {
		col  int
		node string
	}
	observed := map[cell][3]float64{}
	nodeSize := map[string]float64{}
	for row, patient := range patients {
		nodeSize[patient.Node]++
		for col := 0; col < cols; col++ {
			obs := observed[cell{col, patient.Node}]
			obs[genotypes[row*cols+col]]++
			observed[cell{col, patient.Node}] = obs
		}
	}

	chisq := distuv.ChiSquared{K: 2}
	for col, id := range variantIDs {
		for node, size := range nodeSize {
			rec, ok := amplified[freqKey{id, node}]
			if !ok {
				return fmt.Errorf("no amplified frequency record for variant %s node %s", id, node)
			}
			probs, err := genotypeProbs(rec.AmplifiedAF)
			if err != nil {
				return fmt.Errorf("variant %s node %s: %w", id, node, err)
			}
			obs := observed[cell{col, node}]
			sum := 0.0
			for i := range probs {
				e := probs[i] * size
				if e == 0 {
					continue
				}
				d := obs[i] - e
				sum += d * d / e
			}
			p := chisq.Survival(sum)
			ret.HWETests++
			if p < ret.HWEWorstP {
				ret.HWEWorstP = p
			}
			if p < cmd.alpha {
				ret.HWEFailures = append(ret.HWEFailures, hweFailure{Variant: id, Population: node, PValue: p})
			}
		}
	}

	if p := associationPvalue(genotypes, cols, patients); !math.IsNaN(p) {
		ret.AssociationP = &p
	}

	return json.NewEncoder(output).Encode(ret)
}

// associationPvalue fits a logistic regression of progressive
// phenotype (Fast or Slow vs Asymptomatic) on total alt-allele
// dosage, and returns the likelihood-ratio p-value against the
// intercept-only model. A generated cohort should show a strong
// association; NaN means the fit failed (e.g. no affected patients).
func associationPvalue(genotypes []uint16, cols int, patients []patientRow) (p float64) {
	defer func() {
		if recover() != nil {
			// typically "matrix singular or near-singular with condition number +Inf"
			p = math.NaN()
		}
	}()

	outcome := make([]statmodel.Dtype, len(patients))
	constants := make([]statmodel.Dtype, len(patients))
	dosage := make([]statmodel.Dtype, len(patients))
	for row := range patients {
		if patients[row].Label > LabelAsymptomatic {
			outcome[row] = 1
		}
		constants[row] = 1
		for col := 0; col < cols; col++ {
			dosage[row] += statmodel.Dtype(genotypes[row*cols+col])
		}
	}

	null := statmodel.NewDataset([][]statmodel.Dtype{outcome, constants}, []string{"outcome", "constants"})
	modelNull, err := glm.NewGLM(null, "outcome", []string{"constants"}, glmConfig)
	if err != nil {
		return math.NaN()
	}
	logNull := modelNull.Fit().LogLike()

	full := statmodel.NewDataset([][]statmodel.Dtype{outcome, constants, dosage}, []string{"outcome", "constants", "dosage"})
	modelFull, err := glm.NewGLM(full, "outcome", []string{"constants", "dosage"}, glmConfig)
	if err != nil {
		return math.NaN()
	}
	logFull := modelFull.Fit().LogLike()

	dist := distuv.ChiSquared{K: 1}
	return dist.Survival(-2 * (logNull - logFull))
}
