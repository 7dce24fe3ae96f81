// seedgen is the offline seed-file generator of Section 4.4/6,
// grounded in original_source/RandomNumberGenerator/src/RandomNumberGenerator.cpp.
// It writes NumSeeds+1 six-byte little-endian seeds followed by a
// little-endian uint16 current-seed index initialized to 1, matching
// the original tool's on-disk layout exactly.
//
// Usage:
//
//	seedgen -out seeds.bin
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/valblant/garagelink/pkg/seedstore"
)

func main() {
	out := flag.String("out", "seeds.bin", "output path for the seed file")
	flag.Parse()

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var seed [6]byte
	for i := 0; i <= seedstore.NumSeeds; i++ {
		binary.LittleEndian.PutUint32(seed[0:4], rng.Uint32())
		binary.LittleEndian.PutUint16(seed[4:6], uint16(rng.Uint32()&0xFFFF))
		if _, err := w.Write(seed[:]); err != nil {
			log.Fatalf("write seed %d: %v", i, err)
		}
	}

	var index [2]byte
	binary.LittleEndian.PutUint16(index[:], 1)
	if _, err := w.Write(index[:]); err != nil {
		log.Fatalf("write index: %v", err)
	}

	if err := w.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}

	fmt.Printf("wrote %d seeds to %s\n", seedstore.NumSeeds+1, *out)
}
