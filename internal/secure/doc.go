// Package secure provides memory-safe storage for credentials secretctl
// holds between store calls, such as cluster and vault bearer tokens.
//
// It wraps the memguard library. Sealed data is:
//
//   - Encrypted at rest in memory (XSalsa20Poly1305)
//   - Protected from swapping via mlock where the platform allows it
//   - Wiped when the opened buffer is destroyed
//   - Guarded against overflow by guard pages
//
// # Usage
//
//	buf := secure.NewBuffer([]byte(token))
//	defer buf.Destroy()
//
//	bearer, err := buf.Reveal()
//	if err != nil {
//	    return err
//	}
//	req.Header.Set("Authorization", "Bearer "+bearer)
//
// # Platform Behavior
//
// Memory locking varies by platform: Linux honors RLIMIT_MEMLOCK, macOS
// works out of the box, Windows uses VirtualLock. When mlock fails the
// enclave falls back to standard allocation rather than erroring.
//
// # Limits
//
// Core dumps and swap will not contain sealed plaintext, but a string
// returned by Reveal lives in ordinary memory, and nothing here defends
// against an attacker who can read the process's memory directly.
package secure
