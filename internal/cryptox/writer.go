package cryptox

import (
	"archive/zip"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// Bundle layout: keys/<fingerprint> holds the content key wrapped for that
// recipient; files/<name> holds nonce||ciphertext for one entry.
const (
	wrapPrefix  = "keys/"
	entryPrefix = "files/"
)

// Writer assembles one encrypted bundle for a fixed set of recipients.
type Writer struct {
	recipients []Recipient
	names      []string
	entries    map[string][]byte
}

// NewWriter validates the recipient list up front so a caller learns about
// a malformed key before spending time adding entries.
func NewWriter(recipients []Recipient) (*Writer, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("recipient list is empty: %w", ErrInvalidRecipients)
	}
	for _, r := range recipients {
		if len(r.PublicKey) != KeySize {
			return nil, fmt.Errorf("public key for %q has %d bytes: %w", r.Fingerprint, len(r.PublicKey), ErrInvalidRecipients)
		}
	}
	return &Writer{
		recipients: recipients,
		entries:    map[string][]byte{},
	}, nil
}

// AddFile stages one named plaintext entry. Adding the same name twice
// replaces the earlier plaintext.
func (w *Writer) AddFile(name string, plaintext []byte) {
	if _, seen := w.entries[name]; !seen {
		w.names = append(w.names, name)
	}
	w.entries[name] = append([]byte(nil), plaintext...)
}

// Generate encrypts all staged entries under a fresh content key, wraps the
// key once per recipient, and returns the zip container bytes. Any single
// recipient can decrypt every entry with only their private key; wraps are
// independent, so one compromised recipient key exposes no other wrap.
func (w *Writer) Generate() ([]byte, error) {
	contentKey := make([]byte, KeySize)
	if _, err := rand.Read(contentKey); err != nil {
		return nil, fmt.Errorf("generating content key: %w", err)
	}

	block, err := aes.NewCipher(contentKey)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, r := range w.recipients {
		pub, ok := toKeyArray(r.PublicKey)
		if !ok {
			return nil, ErrInvalidRecipients
		}
		wrapped, err := sealAnonymous(contentKey, pub)
		if err != nil {
			return nil, fmt.Errorf("wrapping content key for %q: %w", r.Fingerprint, err)
		}
		if err := writeZipEntry(zw, wrapPrefix+r.Fingerprint, wrapped); err != nil {
			return nil, err
		}
	}

	for _, name := range w.names {
		nonce := make([]byte, aesgcm.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return nil, err
		}
		sealed := aesgcm.Seal(nonce, nonce, w.entries[name], nil)
		if err := writeZipEntry(zw, entryPrefix+name, sealed); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}
