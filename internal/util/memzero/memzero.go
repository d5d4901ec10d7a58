// Package memzero wipes secret buffers once they are no longer needed.
package memzero

import "runtime"

// Zero overwrites every buffer in bufs with zeros. Nil and empty buffers are
// skipped.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		for i := range b {
			b[i] = 0
		}
		// Keep b reachable until the stores above are done.
		runtime.KeepAlive(b)
	}
}
