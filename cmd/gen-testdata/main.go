// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command gen-testdata writes an indexed file populated with random entries,
// for poking at the format and feeding benchmarks.
package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/google/uuid"

	"github.com/filekit/indexed"
)

var (
	outPath      = flag.String("out", "testdata.indexed", "path of the store to create")
	nEntries     = flag.Int("n", 1000, "number of entries to write")
	slotSize     = flag.Int("slot-size", 512, "slot size of the created store")
	maxValueSize = flag.Int("max-value", 4096, "maximum payload length")
)

func newRand() *rand.Rand {
	var seedBytes [8]byte
	_, _ = crand.Read(seedBytes[:])
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return rand.New(rand.NewSource(seed))
}

func main() {
	flag.Parse()
	rng := newRand()

	f, err := indexed.Create(*outPath, *slotSize, *nEntries)
	if err != nil {
		log.Fatalf("indexed.Create: %s", err)
	}

	for i := 0; i < *nEntries; i++ {
		value := make([]byte, rng.Intn(*maxValueSize+1))
		if _, err := rng.Read(value); err != nil {
			log.Fatalf("rng.Read: %s", err)
		}
		if err := f.Set(uuid.NewString(), value); err != nil {
			log.Fatalf("f.Set: %s", err)
		}
	}

	fp, err := f.Fingerprint()
	if err != nil {
		log.Fatalf("f.Fingerprint: %s", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("f.Close: %s", err)
	}

	fmt.Printf("%s: %d entries, fingerprint %016x\n", *outPath, *nEntries, fp)
}
