// Package store persists the full probe history as a single snapshot
// file: one CBOR document, optionally wrapped in a zstd frame. Every
// save rewrites the whole file in place. A crash mid-save can therefore
// leave a truncated file behind; this matches the documented durability
// contract of the snapshot model.
package store

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"netmon/internal/config"
	"netmon/internal/lib/sl"
	"netmon/internal/records"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// ErrDoesNotExist is returned by Load and Save when the store file is
// missing. It is the only store error treated as recoverable: callers
// react by creating the store, never by discarding one.
var ErrDoesNotExist = errors.New("store file does not exist")

// zstdMagic starts every zstd frame. Load sniffs it so both compressed
// and uncompressed snapshots read back.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var encMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// snapshot is the on-disk document.
type snapshot struct {
	Checks []records.Check `cbor:"1,keyasint"`
}

// Store holds the ordered probe history in memory and knows how to
// persist it. The daemon process is the sole intended writer; there is
// no cross-process locking.
type Store struct {
	cfg    config.StoreConfig
	checks []records.Check
}

// New returns an empty, unpersisted store. Most callers want Create,
// Load or LoadOrCreate instead.
func New(cfg config.StoreConfig) *Store {
	return &Store{cfg: cfg}
}

// Create initializes a fresh store file and returns the empty store.
// The parent directory is created as needed. Fails if the file already
// exists.
func Create(cfg config.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	file, err := os.OpenFile(cfg.Path(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create store file: %w", err)
	}
	defer file.Close()

	st := New(cfg)
	if err := st.writeSnapshot(file); err != nil {
		return nil, err
	}
	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("sync store file: %w", err)
	}
	return st, nil
}

// Load reads the snapshot at the configured path. A missing file yields
// ErrDoesNotExist; any other failure is surfaced as is.
func Load(cfg config.StoreConfig) (*Store, error) {
	file, err := os.Open(cfg.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDoesNotExist
		}
		return nil, fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	buffered := bufio.NewReader(file)
	magic, err := buffered.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	var reader io.Reader = buffered
	if bytes.Equal(magic, zstdMagic) {
		dec, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("open zstd frame: %w", err)
		}
		defer dec.Close()
		reader = dec
	}

	var snap snapshot
	if err := cbor.NewDecoder(reader).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode store snapshot: %w", err)
	}
	return &Store{cfg: cfg, checks: snap.Checks}, nil
}

// LoadOrCreate loads the store, falling back to Create only when the
// file does not exist. Any other load failure, corruption included, is
// logged and propagated; a broken store is never silently replaced.
func LoadOrCreate(cfg config.StoreConfig) (*Store, error) {
	st, err := Load(cfg)
	if err != nil {
		if errors.Is(err, ErrDoesNotExist) {
			return Create(cfg)
		}
		slog.Error("failed to load the check store", sl.Error(err))
		return nil, err
	}
	return st, nil
}

// Save rewrites the store file with the full in-memory history. The
// file must already exist; a missing file yields ErrDoesNotExist so the
// caller goes through Create or LoadOrCreate first.
func (s *Store) Save() error {
	file, err := os.OpenFile(s.cfg.Path(), os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrDoesNotExist
		}
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	if err := s.writeSnapshot(file); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync store file: %w", err)
	}
	return nil
}

func (s *Store) writeSnapshot(w io.Writer) error {
	snap := snapshot{Checks: s.checks}

	if s.cfg.Compression > 0 {
		enc, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(s.cfg.Compression)))
		if err != nil {
			return fmt.Errorf("open zstd frame: %w", err)
		}
		if err := encMode.NewEncoder(enc).Encode(snap); err != nil {
			enc.Close()
			return fmt.Errorf("encode store snapshot: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flush zstd frame: %w", err)
		}
		return nil
	}

	if err := encMode.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("encode store snapshot: %w", err)
	}
	return nil
}

// AddCheck appends to the in-memory history only. The caller decides
// when to Save.
func (s *Store) AddCheck(check records.Check) {
	s.checks = append(s.checks, check)
}

// Checks returns the ordered history. The slice is owned by the store
// for the duration of one analysis; callers must not retain it across
// mutations.
func (s *Store) Checks() []records.Check {
	return s.checks
}

func (s *Store) Len() int {
	return len(s.checks)
}

// Path is the resolved store file location.
func (s *Store) Path() string {
	return s.cfg.Path()
}

// Hash digests the in-memory history by chaining the canonical hash of
// every check, for diagnostic comparison against FileHash.
func (s *Store) Hash() string {
	h := sha256.New()
	for _, check := range s.checks {
		h.Write([]byte(check.Hash()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FileHash digests the raw on-disk file bytes. A mismatch with a
// freshly saved Hash indicates drift between memory and disk, for
// example an external writer or a failed save.
func (s *Store) FileHash() (string, error) {
	file, err := os.Open(s.cfg.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrDoesNotExist
		}
		return "", fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash store file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
