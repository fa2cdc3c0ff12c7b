package badger

import (
	"encoding/binary"

	"github.com/poiesic/chunkline/core"
)

// Key prefixes for different data types
const (
	embeddingPrefix = "embcache"
)

// makeEmbeddingKey generates a key for a cached embedding.
// Format: prefix:model:id, with the ID written big endian.
func makeEmbeddingKey(model string, id core.ID) []byte {
	prefix := embeddingPrefix + ":" + model + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

