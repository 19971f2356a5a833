package catalog

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	farm "github.com/dgryski/go-farm"
	"github.com/golang/snappy"
	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// checksumKey is the fixed all-zero HighwayHash key used to checksum cache
// files: the cache is a local, non-adversarial
// artifact, so a secret key buys nothing over detecting accidental
// truncation/corruption.
var checksumKey [highwayhash.Size]byte

// cacheEntry is the gob-encoded, snappy-compressed on-disk representation of
// a loaded PatternCatalog.
type cacheEntry struct {
	Forward   map[string]string
	Reverse   map[string]string
	PairLabel map[string]PairEntry
}

func fingerprint(dbFile, pairFile string) (uint64, error) {
	var buf bytes.Buffer
	for _, p := range []string{dbFile, pairFile} {
		fi, err := os.Stat(p)
		if err != nil {
			return 0, err
		}
		fmt.Fprintf(&buf, "%s|%d|%d;", p, fi.Size(), fi.ModTime().UnixNano())
	}
	return farm.Hash64(buf.Bytes()), nil
}

func cachePath(cacheDir string, fp uint64) string {
	return filepath.Join(cacheDir, fmt.Sprintf("catalog-%x.cache", fp))
}

// LoadCached behaves like Load, but first consults an on-disk cache keyed by
// a FarmHash64 fingerprint of the input files' paths, sizes, and
// modification times. A cache hit skips re-parsing the TSV text entirely.
// This is purely a load-time optimization: the cache is read once at
// startup and never re-checked mid-run, so it neither provides nor
// simulates live catalog reload.
func LoadCached(ctx context.Context, dbFile, pairFile, passphrase, cacheDir string) (*PatternCatalog, error) {
	if cacheDir == "" {
		return Load(ctx, dbFile, pairFile, passphrase)
	}
	fp, err := fingerprint(dbFile, pairFile)
	if err != nil {
		return Load(ctx, dbFile, pairFile, passphrase)
	}
	path := cachePath(cacheDir, fp)
	if cat, err := readCache(path); err == nil {
		vlog.VI(1).Infof("pattern catalog cache hit: %s", path)
		return cat, nil
	}
	cat, err := Load(ctx, dbFile, pairFile, passphrase)
	if err != nil {
		return nil, err
	}
	if err := writeCache(path, cat); err != nil {
		vlog.Errorf("pattern catalog cache write failed: %v", err)
	}
	return cat, nil
}

// readCache validates the leading HighwayHash checksum before trusting the
// rest of the file, so a truncated or hand-edited cache entry is rejected
// and the caller falls back to a full Load instead of decoding garbage.
func readCache(path string) (*PatternCatalog, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < highwayhash.Size {
		return nil, errors.Errorf("cache file %v too short", path)
	}
	sum, compressed := raw[:highwayhash.Size], raw[highwayhash.Size:]
	if !bytes.Equal(sum, highwayhash.Sum(compressed, checksumKey[:])) {
		return nil, errors.Errorf("cache file %v failed checksum", path)
	}
	decompressed, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, err
	}
	var entry cacheEntry
	if err := gob.NewDecoder(bytes.NewReader(decompressed)).Decode(&entry); err != nil {
		return nil, err
	}
	return &PatternCatalog{Forward: entry.Forward, Reverse: entry.Reverse, PairLabel: entry.PairLabel}, nil
}

func writeCache(path string, cat *PatternCatalog) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create cache dir")
	}
	var buf bytes.Buffer
	entry := cacheEntry{Forward: cat.Forward, Reverse: cat.Reverse, PairLabel: cat.PairLabel}
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return errors.Wrap(err, "encode catalog cache")
	}
	compressed := snappy.Encode(nil, buf.Bytes())
	sum := highwayhash.Sum(compressed, checksumKey[:])
	return ioutil.WriteFile(path, append(sum, compressed...), 0o644)
}
