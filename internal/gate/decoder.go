// internal/gate/decoder.go
//
// Site-identifier decoders.
//
// Context
// -------
// Tracking snippets normally send the numeric site id.  Installations that
// do not want sequential ids in public page source can switch the snippet
// to sqids-encoded ids (https://sqids.org); the gate then decodes them with
// the same alphabet and minimum length the snippet generator used.
//
// Notes
// -----
//   - Both decoders reject ids ≤ 0.
//   - A sqids token is accepted only in canonical form: it must re-encode
//     to itself, otherwise several tokens would map to one site.
package gate

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/sqids/sqids-go"
)

// ErrDecode marks a site identifier that could not be turned into an id.
var ErrDecode = errors.New("undecodable site identifier")

// Decoder turns a raw token into a site id.
type Decoder interface {
	Decode(token string) (int64, error)
}

// IntDecoder accepts plain base-10 ids.
type IntDecoder struct{}

// Decode implements Decoder.
func (IntDecoder) Decode(token string) (int64, error) {
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrDecode, token)
	}
	return n, nil
}

// SqidsDecoder accepts ids obfuscated with sqids.
type SqidsDecoder struct {
	s *sqids.Sqids
}

// NewSqidsDecoder builds a decoder.  An empty alphabet selects the sqids
// default.
func NewSqidsDecoder(alphabet string, minLength uint8) (*SqidsDecoder, error) {
	opts := sqids.Options{MinLength: minLength}
	if alphabet != "" {
		opts.Alphabet = alphabet
	}
	s, err := sqids.New(opts)
	if err != nil {
		return nil, fmt.Errorf("sqids: %w", err)
	}
	return &SqidsDecoder{s: s}, nil
}

// Decode implements Decoder.
func (d *SqidsDecoder) Decode(token string) (int64, error) {
	nums := d.s.Decode(token)
	if len(nums) != 1 || nums[0] == 0 || nums[0] > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q", ErrDecode, token)
	}
	canonical, err := d.s.Encode(nums)
	if err != nil || canonical != token {
		return 0, fmt.Errorf("%w: %q is not canonical", ErrDecode, token)
	}
	return int64(nums[0]), nil
}

// Encode is the inverse of Decode; the CLI uses it to print snippet ids.
func (d *SqidsDecoder) Encode(siteID int64) (string, error) {
	if siteID <= 0 {
		return "", fmt.Errorf("sqids: site id %d out of range", siteID)
	}
	return d.s.Encode([]uint64{uint64(siteID)})
}
