package driver

import (
	"encoding/binary"
	"fmt"

	"github.com/minio/highwayhash"
)

// hashKey is fixed so digests are stable across runs and machines.
var hashKey = []byte("tsderive-expansion-cache-key-v1!")

// Digest identifies one (file, source, configuration) expansion.
type Digest uint64

func (d Digest) String() string {
	return fmt.Sprintf("%016x", uint64(d))
}

// Key hashes the inputs that decide an expansion's output. fingerprint
// covers everything outside the file itself: registered macros and their
// versions, and the pipeline options.
func Key(fileName, src, fingerprint string) (Digest, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	var lenBuf [8]byte
	for _, part := range []string{fileName, src, fingerprint} {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(part)))
		if _, err := h.Write(lenBuf[:]); err != nil {
			return 0, err
		}
		if _, err := h.Write([]byte(part)); err != nil {
			return 0, err
		}
	}
	return Digest(h.Sum64()), nil
}
