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
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
)

type statscmd struct{}

func (cmd *statscmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	err = cmd.doStats(*inputDir, bufw)
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

func (cmd *statscmd) doStats(dir string, output io.Writer) error {
	var ret struct {
		Patients         int
		Variants         int
		PatientsPerNode  map[string]int
		GenotypeCounts   [3]int64
		LabelCounts      map[string]int
		ClampedVariants  int
		RejectedVariants int
		Score            struct {
			Mean   float64
			StdDev float64
			Median float64
			P90    float64
		}
	}

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
	ret.Patients = rows
	ret.Variants = cols

	ret.PatientsPerNode = map[string]int{}
	ret.LabelCounts = map[string]int{}
	for _, patient := range patients {
		ret.PatientsPerNode[patient.Node]++
		ret.LabelCounts[patient.Label.String()]++
	}
	for _, g := range genotypes {
		ret.GenotypeCounts[g]++
	}

	amplified, err := readAmplified(dir)
	if err != nil {
		return err
	}
	clamped := map[string]bool{}
	for _, rec := range amplified {
		if rec.Clamped {
			clamped[rec.Variant] = true
		}
	}
	ret.ClampedVariants = len(clamped)

	interactions, err := readInteractions(dir)
	if err != nil {
		return err
	}
	scores := make([]float64, 0, len(interactions))
	for _, rec := range interactions {
		scores = append(scores, rec.Score)
	}
	if len(scores) > 0 {
		if ret.Score.Mean, err = stats.Mean(scores); err != nil {
			return err
		}
		if ret.Score.StdDev, err = stats.StandardDeviation(scores); err != nil {
			return err
		}
		if ret.Score.Median, err = stats.Median(scores); err != nil {
			return err
		}
		if ret.Score.P90, err = stats.Percentile(scores, 90); err != nil {
			return err
		}
	}

	err = readCSVFile(dir, rejectedFilename, false, func([]string) error {
		ret.RejectedVariants++
		return nil
	})
	if err != nil {
		return err
	}

	return json.NewEncoder(output).Encode(ret)
}
