package store

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns the CIDv1 (raw codec, sha2-256) of data.
func Sum(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ParseCID accepts only raw sha2-256 CIDv1 strings.
func ParseCID(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}
	if id.Version() != 1 || id.Type() != cid.Raw || id.Prefix().MhType != multihash.SHA2_256 {
		return cid.Undef, fmt.Errorf("%w: %s is not a raw sha2-256 cidv1", ErrInvalidCID, s)
	}
	return id, nil
}
