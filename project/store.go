// Package project reads and writes a city project directory: the city
// document (city.json or city.json.gz) and preferences.json.
package project

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/teranos/citykit/codec"
	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/logger"
)

// File names inside a project directory.
const (
	CityFile           = "city.json"
	CompressedCityFile = "city.json.gz"
	PreferencesFile    = "preferences.json"
)

const filePerm os.FileMode = 0644

// Document is a decoded-from-JSON city tree: maps, []any and scalars, with
// numbers held as json.Number.
// Packed b64 fields are still strings; see codec.Decode.
type Document = map[string]any

// ErrNoCityFile is returned by Open when the directory holds neither
// city.json.gz nor city.json.
var ErrNoCityFile = errors.New("no city file in project")

// Store reads and writes one project's city document.
type Store struct {
	dir        string
	path       string
	compressed bool
	logger     *zap.SugaredLogger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store's logger (default: no-op)
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) { s.logger = logger.OrNop(l) }
}

// Open locates the city document in dir, preferring the gzip form.
func Open(dir string, opts ...Option) (*Store, error) {
	for _, candidate := range []struct {
		name       string
		compressed bool
	}{
		{CompressedCityFile, true},
		{CityFile, false},
	} {
		path := filepath.Join(dir, candidate.name)
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "stat %s", path)
		}
		if info.IsDir() {
			continue
		}
		return newStore(dir, path, candidate.compressed, opts), nil
	}

	return nil, errors.WithHintf(
		errors.Wrapf(ErrNoCityFile, "open project %s", dir),
		"expected %s or %s", CompressedCityFile, CityFile)
}

// Create returns a Store for a project whose city file may not exist yet.
// The first Save writes city.json.gz when compressed is set, else city.json.
func Create(dir string, compressed bool, opts ...Option) *Store {
	name := CityFile
	if compressed {
		name = CompressedCityFile
	}
	return newStore(dir, filepath.Join(dir, name), compressed, opts)
}

func newStore(dir, path string, compressed bool, opts []Option) *Store {
	s := &Store{
		dir:        dir,
		path:       path,
		compressed: compressed,
		logger:     logger.OrNop(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the project directory
func (s *Store) Dir() string { return s.dir }

// Path returns the city document path
func (s *Store) Path() string { return s.path }

// Compressed reports whether the document is stored gzipped
func (s *Store) Compressed() bool { return s.compressed }

// Load reads and parses the city document.
func (s *Store) Load() (Document, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.path)
	}
	defer f.Close()

	var r io.Reader = f
	if s.compressed {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "gunzip %s", s.path)
		}
		defer zr.Close()
		r = zr
	}

	doc, err := ReadDocument(r)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", s.path)
	}
	if doc == nil {
		return nil, errors.Wrapf(codec.ErrMalformedDocument, "%s: root is null", s.path)
	}

	s.logger.Debugw("Loaded city document",
		logger.FieldPath, s.path,
		logger.FieldCompressed, s.compressed)
	return doc, nil
}

// ReadDocument parses one JSON object from r. Numbers are kept as
// json.Number so integers beyond 2^53 and literals like 1.0 are written
// back exactly as they were read.
func ReadDocument(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode loads the document and expands its packed fields.
func (s *Store) Decode() (map[string]any, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	decoded, err := codec.Decode(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", s.path)
	}
	return decoded, nil
}

// Save writes doc as 4-space indented JSON, compressed the same way the
// document was found. The file is replaced atomically.
func (s *Store) Save(doc Document) error {
	data, err := marshalIndent(doc)
	if err != nil {
		return errors.Wrapf(err, "encode %s", s.path)
	}

	if s.compressed {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return errors.Wrapf(err, "gzip %s", s.path)
		}
		if err := zw.Close(); err != nil {
			return errors.Wrapf(err, "gzip %s", s.path)
		}
		data = buf.Bytes()
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	s.logger.Debugw("Saved city document",
		logger.FieldPath, s.path,
		logger.FieldSize, len(data))
	return nil
}

// BackupPath returns where Backup would copy the document for coreVersion.
func (s *Store) BackupPath(coreVersion int) string {
	return s.path + ".v" + strconv.Itoa(coreVersion) + ".bak"
}

// Backup copies the persisted document byte for byte to
// <file>.v<coreVersion>.bak, replacing any earlier backup of that version.
func (s *Store) Backup(coreVersion int) (string, error) {
	backup := s.BackupPath(coreVersion)

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s for backup", s.path)
	}
	if err := os.WriteFile(backup, data, filePerm); err != nil {
		return "", errors.Wrapf(err, "write backup %s", backup)
	}

	s.logger.Infow("Backed up city document",
		logger.FieldBackup, backup,
		logger.FieldCoreVersion, coreVersion,
		logger.FieldSize, len(data))
	return backup, nil
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "chmod %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "replace %s", path)
	}
	return nil
}
