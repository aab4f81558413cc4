// Package hrw implements rendezvous (highest random weight) hashing. Every
// key is owned by the candidate with the highest blake2b score, so a key
// keeps its owner as long as the candidate set does not change.
package hrw

import (
	"encoding/binary"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Best returns the candidate owning key. ok is false if there are no
// candidates. seed personalises the mapping.
func Best(key string, candidates []string, seed string) (best string, ok bool) {
	var top uint64
	for i, c := range candidates {
		s := score(key, c, seed)
		if i == 0 || s > top {
			best, top = c, s
		}
	}
	return best, len(candidates) > 0
}

// Rank returns candidates ordered by descending score for key. The first
// element is what Best returns.
func Rank(key string, candidates []string, seed string) []string {
	scores := make(map[string]uint64, len(candidates))
	out := make([]string, len(candidates))
	for i, c := range candidates {
		scores[c] = score(key, c, seed)
		out[i] = c
	}
	sort.SliceStable(out, func(a, b int) bool { return scores[out[a]] > scores[out[b]] })
	return out
}

func score(key, candidate, seed string) uint64 {
	h, _ := blake2b.New(8, nil)
	if seed != "" {
		h.Write([]byte(seed))
		h.Write([]byte{0})
	}
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write([]byte(candidate))
	return binary.BigEndian.Uint64(h.Sum(nil))
}
