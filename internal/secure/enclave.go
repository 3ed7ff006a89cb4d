package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrBufferDestroyed is returned by Open and Reveal once a Buffer has been
// destroyed, or when it was sealed from empty input. memguard cannot
// represent zero-length buffers, so the empty case never reaches it.
var ErrBufferDestroyed = errors.New("secure buffer already destroyed")

// Buffer holds sensitive bytes in a memguard enclave. The plaintext is
// encrypted at rest in memory and the backing pages are mlocked where the
// platform allows it. secretctl uses Buffer for bearer tokens a store keeps
// between calls.
//
// A Buffer survives any number of Open calls until Destroy. Destroy is
// idempotent; after it, Open and Reveal return ErrBufferDestroyed.
type Buffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex

	// destroyed allows idempotent Destroy calls and blocks use after destroy
	destroyed bool
}

// NewBuffer seals a copy of data in a protected enclave. memguard may zero
// the input slice; callers must not rely on it afterwards. Empty input
// yields a Buffer that is already destroyed.
func NewBuffer(data []byte) *Buffer {
	if len(data) == 0 {
		return &Buffer{destroyed: true}
	}
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// Open decrypts the enclave into a locked buffer. The caller MUST call
// Destroy on the returned LockedBuffer to wipe the plaintext:
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
//	use(locked.Bytes())
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return nil, ErrBufferDestroyed
	}

	return b.enclave.Open()
}

// Reveal decrypts the enclave and copies the plaintext into an ordinary
// string. The locked buffer is wiped before returning; the string copy is
// for APIs that need one, like HTTP Authorization headers, and is not
// protected memory.
func (b *Buffer) Reveal() (string, error) {
	locked, err := b.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()

	return string(locked.Bytes()), nil
}

// Destroy marks the buffer as unusable. The encrypted enclave data itself
// is released to the garbage collector; memguard.Purge in main handles
// whole-process cleanup at exit.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}

	b.enclave = nil
	b.destroyed = true
}
