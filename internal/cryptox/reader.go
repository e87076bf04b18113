package cryptox

import (
	"archive/zip"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/box"
)

// Reader decrypts a bundle with a single recipient's private key. It is
// pure in-memory computation with no server dependencies, so it can run
// wherever the private key lives.
type Reader struct {
	privateKey []byte
	bundle     []byte
}

func NewReader(bundle, privateKey []byte) *Reader {
	return &Reader{privateKey: privateKey, bundle: bundle}
}

// ExtractFiles locates this key's wrap by fingerprint, unwraps the content
// key, and decrypts every entry. On any integrity or key failure it
// returns ErrDecryptionFailed and no plaintext at all.
func (r *Reader) ExtractFiles() (map[string][]byte, error) {
	pubBytes, err := PublicKeyFromPrivate(r.privateKey)
	if err != nil {
		return nil, err
	}
	fingerprint := Fingerprint(pubBytes)

	zr, err := zip.NewReader(bytes.NewReader(r.bundle), int64(len(r.bundle)))
	if err != nil {
		return nil, fmt.Errorf("reading bundle container: %w", ErrDecryptionFailed)
	}

	var wrapped []byte
	type sealedEntry struct {
		name string
		data []byte
	}
	var sealed []sealedEntry

	for _, f := range zr.File {
		data, err := readZipEntry(f)
		if err != nil {
			return nil, fmt.Errorf("reading bundle entry %q: %w", f.Name, ErrDecryptionFailed)
		}
		switch {
		case f.Name == wrapPrefix+fingerprint:
			wrapped = data
		case strings.HasPrefix(f.Name, entryPrefix):
			sealed = append(sealed, sealedEntry{name: strings.TrimPrefix(f.Name, entryPrefix), data: data})
		}
	}

	if wrapped == nil {
		return nil, fmt.Errorf("no wrapped key for fingerprint %s: %w", fingerprint, ErrDecryptionFailed)
	}

	pub, _ := toKeyArray(pubBytes)
	priv, ok := toKeyArray(r.privateKey)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	contentKey, opened := box.OpenAnonymous(nil, wrapped, pub, priv)
	if !opened {
		return nil, fmt.Errorf("unwrapping content key: %w", ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(contentKey)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	files := make(map[string][]byte, len(sealed))
	for _, e := range sealed {
		if len(e.data) < aesgcm.NonceSize() {
			return nil, fmt.Errorf("entry %q is truncated: %w", e.name, ErrDecryptionFailed)
		}
		nonce, ciphertext := e.data[:aesgcm.NonceSize()], e.data[aesgcm.NonceSize():]
		plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return nil, fmt.Errorf("entry %q failed authentication: %w", e.name, ErrDecryptionFailed)
		}
		files[e.name] = plaintext
	}
	return files, nil
}

func sealAnonymous(message []byte, recipientPub *[KeySize]byte) ([]byte, error) {
	return box.SealAnonymous(nil, message, recipientPub, rand.Reader)
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
