package badger

import (
	"encoding/binary"

	"github.com/poiesic/homesearch/core"
)

// Key prefixes for different data types
const (
	propertyPrefix  = "prop:"
	layoutSignature = "meta:layout"
)

// makePropertyKey generates a key for a property by its numeric key.
// Format: prefix + 8 bytes BigEndian id
func makePropertyKey(id core.ID) []byte {
	buf := make([]byte, len(propertyPrefix)+8)
	offset := copy(buf, propertyPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
