// Package sealed encrypts values before handing them to another storage.Repo.
package sealed

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-imagen-client/storage"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrOpen is returned when a stored value cannot be authenticated with the key.
var ErrOpen = errors.New("sealed: value could not be opened")

var _ storage.Repo = (*Repo)(nil)

type Repo struct {
	inner storage.Repo
	key   [32]byte
}

// New derives a 32 byte secretbox key from secret.
func New(inner storage.Repo, secret string) *Repo {
	return &Repo{inner: inner, key: sha256.Sum256([]byte(secret))}
}

func (r *Repo) Load(ctx context.Context, key string) ([]byte, error) {
	box, err := r.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(box) < nonceSize {
		return nil, fmt.Errorf("%w: %s", ErrOpen, key)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &r.key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOpen, key)
	}
	return plain, nil
}

func (r *Repo) Save(ctx context.Context, key string, value []byte) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("sealed.Save nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], value, &nonce, &r.key)
	return r.inner.Save(ctx, key, box)
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	return r.inner.Delete(ctx, key)
}

// Close closes the wrapped repo when it holds resources.
func (r *Repo) Close() error {
	if c, ok := r.inner.(storage.Closer); ok {
		return c.Close()
	}
	return nil
}
