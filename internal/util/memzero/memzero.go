// Package memzero wipes secrets held in byte slices.
package memzero

import "crypto/subtle"

// Zero overwrites each buffer with zeros in a constant-time friendly way.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	}
}
