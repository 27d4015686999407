// Package eepromfile implements rcjoy.EepromStore as a CBOR-encoded
// file on disk, standing in for the byte image a real EEPROM chip
// would hold.
package eepromfile

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sys/unix"

	"github.com/rc-hacks/rcjoybridge/rcjoy"
)

/*-------------------------------------------------------------------
 *
 * Name:	Store
 *
 * Purpose:	An rcjoy.EepromStore backed by a single file. Save
 *		takes an exclusive flock for the duration of the write
 *		so a concurrent Load from another process never observes
 *		a torn image.
 *
 *--------------------------------------------------------------*/

type Store struct {
	path string
}

// New returns a Store reading and writing path. The file need not
// exist yet; Load returns an error until the first Save.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (rcjoy.Configuration, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return rcjoy.Configuration{}, fmt.Errorf("eepromfile: open %s: %w", s.path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		return rcjoy.Configuration{}, fmt.Errorf("eepromfile: lock %s: %w", s.path, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	var cfg rcjoy.Configuration
	if err := cbor.NewDecoder(f).Decode(&cfg); err != nil {
		return rcjoy.Configuration{}, fmt.Errorf("eepromfile: decode %s: %w", s.path, err)
	}
	return cfg, nil
}

func (s *Store) Save(cfg rcjoy.Configuration) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("eepromfile: open %s: %w", s.path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("eepromfile: lock %s: %w", s.path, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	data, err := cbor.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("eepromfile: encode: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("eepromfile: truncate %s: %w", s.path, err)
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return fmt.Errorf("eepromfile: write %s: %w", s.path, err)
	}
	return f.Sync()
}

var _ rcjoy.EepromStore = (*Store)(nil)
