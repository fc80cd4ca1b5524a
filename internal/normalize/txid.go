package normalize

import (
	"crypto/sha512"
	"encoding/base32"
	"encoding/json"

	"github.com/rawblock/algostream/pkg/models"
)

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// DeriveID computes a deterministic transaction id for sources that do not
// attach one: the SHA-512/256 digest of the stable JSON serialization of the
// transaction body, base32-encoded without padding (52 characters, the shape
// of a native transaction id). Equal bodies always produce equal ids.
func DeriveID(raw *models.RawTransaction) string {
	encoded, err := json.Marshal(raw)
	if err != nil {
		// A RawTransaction contains no unmarshalable types; this is
		// unreachable with well-formed input.
		return ""
	}
	digest := sha512.Sum512_256(encoded)
	return idEncoding.EncodeToString(digest[:])
}
