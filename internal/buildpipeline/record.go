package buildpipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Record format changes
const recordSchemaVersion uint16 = 1

// RecordFileName is written next to the archive.
const RecordFileName = "secpbuild-record.mp"

// ErrRecordSchema is returned for a record written by an incompatible version.
var ErrRecordSchema = errors.New("build record schema mismatch")

// Record describes how an archive was produced.
type Record struct {
	Schema uint16

	Target         string
	HostOS         string
	PointerWidth   uint8
	ProbeAttempted bool
	Int128         bool

	CC       string
	CCArgs   []string
	AR       string
	NDKPaths []string

	IncludeDirs []string
	Defines     map[string]string
	Flags       []string
	Sources     []string
	Archive     string
	Jobs        uint16

	BuiltAt time.Time
}

// WriteRecord atomically writes rec into dir.
func WriteRecord(dir string, rec *Record) (string, error) {
	if rec == nil {
		return "", errors.New("missing build record")
	}
	rec.Schema = recordSchemaVersion
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	target := filepath.Join(dir, RecordFileName)
	f, err := os.CreateTemp(dir, "record-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	defer func() {
		// Already renamed on success.
		_ = os.Remove(tmp)
	}()

	if err := msgpack.NewEncoder(f).Encode(rec); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	// Атомарная замена
	if err := os.Rename(tmp, target); err != nil {
		return "", err
	}
	return target, nil
}

// ReadRecord decodes the record in dir.
func ReadRecord(dir string) (Record, error) {
	path := filepath.Join(dir, RecordFileName)
	// #nosec G304 -- path is derived from the output directory
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer func() {
		_ = f.Close()
	}()
	var rec Record
	if err := msgpack.NewDecoder(f).Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if rec.Schema != recordSchemaVersion {
		return Record{}, fmt.Errorf("%s: %w (got %d, want %d)", path, ErrRecordSchema, rec.Schema, recordSchemaVersion)
	}
	return rec, nil
}
