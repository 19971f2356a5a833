package catalog

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
	jose "gopkg.in/square/go-jose.v2"
)

// safeSuffix marks a pattern db file as an encrypted container.
const safeSuffix = ".safe"

// dbReader returns a reader over the plaintext db content, transparently
// decrypting a ".safe" JWE container when path carries that suffix.
func dbReader(ctx context.Context, f file.File, path, passphrase string) (io.Reader, error) {
	if !strings.HasSuffix(path, safeSuffix) {
		return f.Reader(ctx), nil
	}
	if passphrase == "" {
		return nil, errors.Errorf("encrypted pattern db %v requires a passphrase", path)
	}
	ciphertext, err := ioutil.ReadAll(f.Reader(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "read encrypted pattern db %v", path)
	}
	plaintext, err := Decrypt(ciphertext, passphrase)
	if err != nil {
		return nil, errors.Wrapf(err, "decrypt pattern db %v", path)
	}
	return bytes.NewReader(plaintext), nil
}

// Encrypt produces a ".safe" JWE compact-serialization envelope over
// plaintext, using PBES2-HS256+A128KW passphrase-based key derivation and
// AES-GCM content encryption. This is the envelope the "encrypt" CLI
// subcommand writes and Load/dbReader transparently read back.
func Encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	recipient := jose.Recipient{
		Algorithm: jose.PBES2_HS256_A128KW,
		Key:       []byte(passphrase),
	}
	encrypter, err := jose.NewEncrypter(jose.A128GCM, recipient, nil)
	if err != nil {
		return nil, errors.Wrap(err, "construct encrypter")
	}
	obj, err := encrypter.Encrypt(plaintext)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt pattern db")
	}
	serialized, err := obj.CompactSerialize()
	if err != nil {
		return nil, errors.Wrap(err, "serialize encrypted pattern db")
	}
	return []byte(serialized), nil
}

// Decrypt reverses Encrypt. Returns an error when the passphrase is wrong or
// the container is corrupt; the two cases are not distinguished.
func Decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	obj, err := jose.ParseEncrypted(string(ciphertext))
	if err != nil {
		return nil, errors.Wrap(err, "parse encrypted pattern db")
	}
	plaintext, err := obj.Decrypt([]byte(passphrase))
	if err != nil {
		return nil, errors.Wrap(err, "wrong passphrase or corrupt pattern db")
	}
	return plaintext, nil
}

// EncryptFile reads plaintext from path and writes path+".safe" as an
// encrypted container, the operation behind "cmd/jasper encrypt <file>".
func EncryptFile(ctx context.Context, path, passphrase string) (string, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return "", errors.Wrapf(err, "open file to encrypt %v", path)
	}
	defer f.Close(ctx)
	plaintext, err := ioutil.ReadAll(f.Reader(ctx))
	if err != nil {
		return "", errors.Wrapf(err, "read file to encrypt %v", path)
	}
	ciphertext, err := Encrypt(plaintext, passphrase)
	if err != nil {
		return "", err
	}
	outPath := path + safeSuffix
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return "", errors.Wrapf(err, "create encrypted file %v", outPath)
	}
	defer out.Close(ctx)
	if _, err := out.Writer(ctx).Write(ciphertext); err != nil {
		return "", errors.Wrapf(err, "write encrypted file %v", outPath)
	}
	return outPath, nil
}
