package catalog

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "catalog")
	defer cleanup()

	db := writeTemp(t, dir, "db.tsv", "P1\tACGTACGT\nP2\tTTGGCCAA\n")
	pair := writeTemp(t, dir, "pair.tsv", "forward_name\treverse_name\tlabel\nP1\tP2\talpha\n")

	cat, err := Load(context.Background(), db, pair, "")
	require.NoError(t, err)

	assert.Equal(t, "ACGTACGT", cat.Forward["P1"])
	assert.Equal(t, "TTGGCCAA", cat.Forward["P2"])
	rc, err := ReverseComplement("TTGGCCAA")
	require.NoError(t, err)
	assert.Equal(t, rc, cat.Reverse["P2"])

	entry, ok := cat.PairLabel["P1_P2"]
	require.True(t, ok)
	assert.Equal(t, "alpha", entry.Label)
	assert.Equal(t, "fs", entry.StrandTag)

	swapped, ok := cat.PairLabel["P2_P1"]
	require.True(t, ok)
	assert.Equal(t, "rs", swapped.StrandTag)
}

func TestLoadUnknownName(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "catalog")
	defer cleanup()

	db := writeTemp(t, dir, "db.tsv", "P1\tACGTACGT\n")
	pair := writeTemp(t, dir, "pair.tsv", "forward_name\treverse_name\tlabel\nP1\tMISSING\talpha\n")

	_, err := Load(context.Background(), db, pair, "")
	assert.Error(t, err)
}

func TestLoadFusionResolvesByName(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "catalog")
	defer cleanup()

	db := writeTemp(t, dir, "db.tsv", "P1\tACGTACGT\nP2\tTTGGCCAA\nFUS1\tAAAAAAAAAA\n")
	fusion := writeTemp(t, dir, "fusion.tsv", "name\nFUS1\n")

	fc, err := LoadFusion(context.Background(), db, "", fusion)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"FUS1": "AAAAAAAAAA"}, fc.Patterns)
}

func TestLoadFusionUnknownName(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "catalog")
	defer cleanup()

	db := writeTemp(t, dir, "db.tsv", "P1\tACGTACGT\n")
	fusion := writeTemp(t, dir, "fusion.tsv", "name\nMISSING\n")

	_, err := LoadFusion(context.Background(), db, "", fusion)
	assert.Error(t, err)
}

func TestReverseComplementInvolution(t *testing.T) {
	for _, s := range []string{"A", "ACGT", "GATTACA", "TTTTAAAACCCCGGGG"} {
		rc1, err := ReverseComplement(s)
		require.NoError(t, err)
		rc2, err := ReverseComplement(rc1)
		require.NoError(t, err)
		assert.Equal(t, s, rc2)
	}
}

func TestReverseComplementRejectsNonACGT(t *testing.T) {
	_, err := ReverseComplement("ACGN")
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("P1\tACGTACGT\nP2\tTTGGCCAA\n")
	ciphertext, err := Encrypt(plaintext, "hunter2")
	require.NoError(t, err)

	decrypted, err := Decrypt(ciphertext, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)

	_, err = Decrypt(ciphertext, "wrong-passphrase")
	assert.Error(t, err)
}
