// Package runid derives a stable per-machine identifier that internal/engine
// appends to every log line of an engine run, so logs written on different
// machines can be told apart. Runs on the same machine share the same id.
package runid

import (
	"github.com/denisbrodbeck/machineid"
)

// Machine returns a stable, hashed machine identifier. Callers should treat
// failures as non-fatal and fall back to an empty tag.
func Machine() (string, error) {
	return machineid.ProtectedID("trading-core")
}
