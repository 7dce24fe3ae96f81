// Package seedstore implements the persistent, rotating PRG seed store
// of Section 4.4: a fixed table of 65535 pre-computed 48-bit seeds
// followed by a 16-bit current-seed index, addressed at the flash
// offsets of Section 6. Here the non-volatile region is a flat file with
// the identical byte layout, since this core runs on a host filesystem
// rather than raw flash; a future flash-backed Store would implement the
// same *Store API against the addresses documented below instead of a
// file.
package seedstore

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/pion/logging"
)

const (
	// ExternalFlashStartAddress is the base offset of the seed region,
	// matching the original firmware's flash layout constant.
	ExternalFlashStartAddress = 0x80000

	// NumSeeds is the number of pre-computed seeds in the table.
	NumSeeds = 0xFFFF

	// SeedLen is the size in bytes of one 48-bit seed.
	SeedLen = 6

	// seedTableBytes is the size of the seed array plus its one unused
	// trailing slot (NumSeeds+1 entries).
	seedTableBytes = (NumSeeds + 1) * SeedLen

	// IndexOffset is the file offset of the current_seed_index field,
	// relative to ExternalFlashStartAddress. This equals
	// CURRENT_SEED_INDEX_ADDRESS - EXTERNAL_FLASH_START_ADDRESS = 0x60000.
	IndexOffset = seedTableBytes

	// FileSize is the total size in bytes a well-formed seed file must
	// have.
	FileSize = IndexOffset + 2

	// CurrentSeedIndexAddress is the absolute flash address of the
	// index field, reproduced here for documentation parity with
	// Section 6; the file-backed Store addresses relative to
	// ExternalFlashStartAddress instead.
	CurrentSeedIndexAddress = ExternalFlashStartAddress + IndexOffset
)

// Store is a file-backed, read-through-cached view of the seed table.
// It is owned by the Controller, not a package-level singleton.
type Store struct {
	path   string
	rotate bool
	log    logging.LeveledLogger

	mu          sync.Mutex
	cachedIndex uint16
	indexLoaded bool
}

// Config configures a Store.
type Config struct {
	// Path is the seed file's location, produced offline by
	// cmd/seedgen (Section 4.4).
	Path string

	// Rotate selects whether NextSeed advances and persists the index,
	// or leaves it untouched. This is the runtime equivalent of the
	// original firmware's ROTATE_SEED build-time switch.
	Rotate bool

	LoggerFactory logging.LoggerFactory
}

// Open checks that the seed file at cfg.Path exists and is large enough
// for the layout; it keeps no file handle open and reads nothing yet. The
// index is loaded lazily and cached on first access.
func Open(cfg Config) (*Store, error) {
	// Verify the file exists and is large enough before returning, so
	// that a missing or truncated seed file is reported once at
	// startup rather than silently degrading every later Nonce call.
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, err
	}
	if info.Size() < FileSize {
		return nil, ErrShortFile
	}

	s := &Store{
		path:   cfg.Path,
		rotate: cfg.Rotate,
	}
	if cfg.LoggerFactory != nil {
		s.log = cfg.LoggerFactory.NewLogger("seedstore")
	}
	return s, nil
}

// ReadIndex returns the current seed index, reading it from the file on
// first call and returning the cached value thereafter (Section 4.4).
func (s *Store) ReadIndex() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndexLocked()
}

func (s *Store) readIndexLocked() (uint16, error) {
	if s.indexLoaded {
		return s.cachedIndex, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return s.cachedIndex, err
	}
	defer f.Close()

	var buf [2]byte
	if _, err := f.ReadAt(buf[:], IndexOffset); err != nil {
		return s.cachedIndex, err
	}

	s.cachedIndex = binary.LittleEndian.Uint16(buf[:])
	s.indexLoaded = true
	return s.cachedIndex, nil
}

// Rotate advances the current seed index modulo NumSeeds and persists it,
// when rotation is enabled; otherwise it is a no-op that still populates
// the cache via ReadIndex. A write failure falls back to the cached index
// and is logged, never propagated as a protocol-visible error (Section 7,
// StorageIO).
func (s *Store) Rotate() (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndexLocked()
	if err != nil {
		if s.log != nil {
			s.log.Warnf("seed index read failed, using cached value %d: %v", idx, err)
		}
		return idx, nil
	}

	if !s.rotate {
		return idx, nil
	}

	next := uint16((uint32(idx) + 1) % NumSeeds)

	f, err := os.OpenFile(s.path, os.O_WRONLY, 0)
	if err != nil {
		if s.log != nil {
			s.log.Warnf("seed index persist failed, keeping cached value %d: %v", idx, err)
		}
		return idx, nil
	}
	defer f.Close()

	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], next)
	if _, err := f.WriteAt(buf[:], IndexOffset); err != nil {
		if s.log != nil {
			s.log.Warnf("seed index persist failed, keeping cached value %d: %v", idx, err)
		}
		return idx, nil
	}

	s.cachedIndex = next
	return next, nil
}

// ReadSeed reads the 48-bit seed at the given table index.
func (s *Store) ReadSeed(index uint16) ([6]byte, error) {
	var seed [6]byte
	if uint32(index) >= NumSeeds {
		return seed, ErrIndexOutOfRange
	}

	f, err := os.Open(s.path)
	if err != nil {
		return seed, err
	}
	defer f.Close()

	if _, err := f.ReadAt(seed[:], int64(index)*SeedLen); err != nil {
		return seed, err
	}
	return seed, nil
}

// NextSeed rotates the seed index (if enabled) and reads the seed at the
// resulting position, mirroring the original's
// rotateRandomSeed()-then-readRandomSeedFromFlash() sequence on first use.
func (s *Store) NextSeed() ([6]byte, error) {
	idx, err := s.Rotate()
	if err != nil {
		var zero [6]byte
		return zero, err
	}
	return s.ReadSeed(idx)
}
