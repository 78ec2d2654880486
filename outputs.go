// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/klauspost/pgzip"
	"github.com/kshedden/gonpy"
)

// A cohort directory holds everything downstream consumers need: the
// genotype matrix for model training, per-patient labels, and the
// audit tables that make every score traceable.
const (
	genotypesFilename    = "genotypes.npy"
	patientsFilename     = "patients.csv"
	variantsFilename     = "variants.csv"
	amplifiedFilename    = "amplified.csv.gz"
	interactionsFilename = "interactions.csv.gz"
	rejectedFilename     = "rejected.csv"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// WriteCohortDir writes all output files for a generated cohort.
func WriteCohortDir(dir string, cohort *Cohort) error {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	for _, step := range []struct {
		filename string
		write    func(io.Writer) error
	}{
		{genotypesFilename, cohort.writeGenotypes},
		{patientsFilename, cohort.writePatients},
		{variantsFilename, cohort.writeVariants},
		{amplifiedFilename, cohort.writeAmplified},
		{interactionsFilename, cohort.writeInteractions},
		{rejectedFilename, cohort.writeRejected},
	} {
		f, err := os.OpenFile(dir+"/"+step.filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0777)
		if err != nil {
			return err
		}
		bufw := bufio.NewWriter(f)
		err = step.write(bufw)
		if err == nil {
			err = bufw.Flush()
		}
		if err == nil {
			err = f.Close()
		} else {
			f.Close()
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", step.filename, err)
		}
	}
	return nil
}

func (cohort *Cohort) writeGenotypes(w io.Writer) error {
	rows, cols := len(cohort.Patients), len(cohort.Variants)
	data := make([]uint16, rows*cols)
	for row, patient := range cohort.Patients {
		copy(data[row*cols:(row+1)*cols], patient.Genotypes)
	}
	npw, err := gonpy.NewWriter(nopCloser{w})
	if err != nil {
		return err
	}
	npw.Shape = []int{rows, cols}
	return npw.WriteUint16(data)
}

func (cohort *Cohort) writePatients(w io.Writer) error {
	_, err := fmt.Fprint(w, "Index,PatientID,Node,Label\n")
	if err != nil {
		return err
	}
	for i, patient := range cohort.Patients {
		_, err = fmt.Fprintf(w, "%d,%s,%s,%s\n", i, patient.ID, patient.Node, patient.Label)
		if err != nil {
			return err
		}
	}
	return nil
}

func (cohort *Cohort) writeVariants(w io.Writer) error {
	_, err := fmt.Fprint(w, "Index,VariantID,Gene,ClinicalSig,GlobalAF\n")
	if err != nil {
		return err
	}
	for i, v := range cohort.Variants {
		_, err = fmt.Fprintf(w, "%d,%s,%s,%s,%g\n", i, v.ID, v.Gene, v.Significance, v.GlobalAF)
		if err != nil {
			return err
		}
	}
	return nil
}

func (cohort *Cohort) writeAmplified(w io.Writer) error {
	gzw := pgzip.NewWriter(w)
	_, err := fmt.Fprint(gzw, "VariantID,Population,RawAF,AmplifiedAF,Clamped\n")
	if err != nil {
		return err
	}
	for _, rec := range cohort.Frequencies.Records() {
		_, err = fmt.Fprintf(gzw, "%s,%s,%g,%g,%v\n", rec.Variant, rec.Population, rec.RawAF, rec.AmplifiedAF, rec.Clamped)
		if err != nil {
			return err
		}
	}
	return gzw.Close()
}

func (cohort *Cohort) writeInteractions(w io.Writer) error {
	gzw := pgzip.NewWriter(w)
	_, err := fmt.Fprint(gzw, "VariantID,Population,Ratio,Anchor,Modifier,Noise,Score,Label\n")
	if err != nil {
		return err
	}
	for _, rec := range cohort.Interactions {
		_, err = fmt.Fprintf(gzw, "%s,%s,%g,%g,%g,%g,%g,%s\n", rec.Variant, rec.Population, rec.Ratio, rec.Anchor, rec.Modifier, rec.Noise, rec.Score, rec.Label)
		if err != nil {
			return err
		}
	}
	return gzw.Close()
}

func (cohort *Cohort) writeRejected(w io.Writer) error {
	csvw := csv.NewWriter(w)
	err := csvw.Write([]string{"VariantID", "Reason"})
	if err != nil {
		return err
	}
	for _, rej := range cohort.Rejected {
		err = csvw.Write([]string{rej.Variant, rej.Reason})
		if err != nil {
			return err
		}
	}
	csvw.Flush()
	return csvw.Error()
}

type patientRow struct {
	ID    string
	Node  string
	Label Label
}

// ReadGenotypes loads the genotype matrix from a cohort directory.
func ReadGenotypes(dir string) (data []uint16, rows, cols int, err error) {
	f, err := os.Open(dir + "/" + genotypesFilename)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()
	npr, err := gonpy.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read %s: %w", genotypesFilename, err)
	}
	data, err = npr.GetUint16()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read %s: %w", genotypesFilename, err)
	}
	if len(npr.Shape) != 2 {
		return nil, 0, 0, fmt.Errorf("read %s: want 2-dimensional array, got shape %v", genotypesFilename, npr.Shape)
	}
	return data, npr.Shape[0], npr.Shape[1], nil
}

func readCSVFile(dir, filename string, gzipped bool, row func([]string) error) error {
	f, err := os.Open(dir + "/" + filename)
	if err != nil {
		return err
	}
	defer f.Close()
	var r io.Reader = bufio.NewReader(f)
	if gzipped {
		gzr, err := pgzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("read %s: %w", filename, err)
		}
		defer gzr.Close()
		r = gzr
	}
	csvr := csv.NewReader(r)
	if _, err = csvr.Read(); err != nil { // header
		return fmt.Errorf("read %s: %w", filename, err)
	}
	for {
		rec, err := csvr.Read()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("read %s: %w", filename, err)
		}
		if err = row(rec); err != nil {
			return fmt.Errorf("read %s: %w", filename, err)
		}
	}
}

func readPatients(dir string) ([]patientRow, error) {
	var patients []patientRow
	err := readCSVFile(dir, patientsFilename, false, func(rec []string) error {
		label, err := parseLabel(rec[3])
		if err != nil {
			return err
		}
		patients = append(patients, patientRow{ID: rec[1], Node: rec[2], Label: label})
		return nil
	})
	return patients, err
}

func readVariantIDs(dir string) ([]string, error) {
	var ids []string
	err := readCSVFile(dir, variantsFilename, false, func(rec []string) error {
		ids = append(ids, rec[1])
		return nil
	})
	return ids, err
}

func readAmplified(dir string) (map[freqKey]AmplifiedFrequency, error) {
	table := map[freqKey]AmplifiedFrequency{}
	err := readCSVFile(dir, amplifiedFilename, true, func(rec []string) error {
		raw, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return err
		}
		amp, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return err
		}
		clamped, err := strconv.ParseBool(rec[4])
		if err != nil {
			return err
		}
		table[freqKey{rec[0], rec[1]}] = AmplifiedFrequency{
			Variant:     rec[0],
			Population:  rec[1],
			RawAF:       raw,
			AmplifiedAF: amp,
			Clamped:     clamped,
		}
		return nil
	})
	return table, err
}

func readInteractions(dir string) ([]InteractionRecord, error) {
	var records []InteractionRecord
	err := readCSVFile(dir, interactionsFilename, true, func(rec []string) error {
		var ir InteractionRecord
		ir.Variant, ir.Population = rec[0], rec[1]
		for i, dst := range []*float64{&ir.Ratio, &ir.Anchor, &ir.Modifier, &ir.Noise, &ir.Score} {
			v, err := strconv.ParseFloat(rec[2+i], 64)
			if err != nil {
				return err
			}
			*dst = v
		}
		label, err := parseLabel(rec[7])
		if err != nil {
			return err
		}
		ir.Label = label
		records = append(records, ir)
		return nil
	})
	return records, err
}
