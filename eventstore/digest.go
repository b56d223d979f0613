package eventstore

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/billbatista/acasinha-ledger/ledger"
)

// Digest chains ev onto the digest of the event before it:
//
//	blake2b-256(prev || seq || kind || payload JSON)
//
// prev is empty for the first event of a group.
func Digest(prev []byte, ev ledger.Event) ([]byte, error) {
	body, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload of event %d: %w", ev.Seq, err)
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], uint64(ev.Seq))

	h.Write(prev)
	h.Write(seq[:])
	h.Write([]byte(ev.Kind()))
	h.Write(body)
	return h.Sum(nil), nil
}

func equalDigest(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
