// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"

	log "github.com/sirupsen/logrus"
)

type generator struct {
	config Config
}

func (cmd *generator) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	cmd.config = DefaultConfig()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	inputFilename := flags.String("i", "-", "input annotation csv `file`")
	outputDir := flags.String("output-dir", "./cohort", "output `directory`")
	cmd.config.Flags(flags)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	err = cmd.config.ParseFlags()
	if err != nil {
		return 2
	}
	err = cmd.config.Check()
	if err != nil {
		return 2
	}

	var input io.ReadCloser
	if *inputFilename == "-" {
		input = io.NopCloser(stdin)
	} else {
		input, err = os.Open(*inputFilename)
		if err != nil {
			return 1
		}
		defer input.Close()
	}
	variants, rejected, err := LoadVariants(input, cmd.config.Populations)
	if err != nil {
		return 1
	}
	err = input.Close()
	if err != nil {
		return 1
	}
	log.Infof("loaded %d variants (%d rejected while loading)", len(variants), len(rejected))

	cohort, err := AssembleCohort(variants, cmd.config)
	if err != nil {
		return 1
	}
	cohort.Rejected = append(rejected, cohort.Rejected...)
	for _, rej := range cohort.Rejected {
		log.Warnf("rejected variant %s: %s", rej.Variant, rej.Reason)
	}
	log.Infof("generated %d variants, rejected %d", len(cohort.Variants), len(cohort.Rejected))

	err = WriteCohortDir(*outputDir, cohort)
	if err != nil {
		return 1
	}
	fmt.Fprintln(stdout, *outputDir)
	return 0
}
