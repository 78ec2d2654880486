// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package synthcohort

import (
	"encoding/binary"
	"strconv"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/rand"
)

// streamSource returns a deterministic rand source for one unit of
// work, derived from the global seed and a stable key. Units never
// share a source, so worker scheduling cannot affect output.
func streamSource(seed uint64, key ...string) rand.Source {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seed)
	h.Write(buf[:])
	for _, k := range key {
		h.Write([]byte{0})
		h.Write([]byte(k))
	}
	sum := h.Sum(nil)
	return rand.NewSource(binary.BigEndian.Uint64(sum[:8]))
}

func noiseSource(seed uint64, variantID, population string) rand.Source {
	return streamSource(seed, "noise", variantID, population)
}

func genotypeSource(seed uint64, variantID, population string, patient int) rand.Source {
	return streamSource(seed, "genotype", variantID, population, strconv.Itoa(patient))
}
