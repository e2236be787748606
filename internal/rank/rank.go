// Package rank generates dense, lexicographically ordered string keys.
// Siblings in an ordered collection (condition-tree items, automations
// within a stage) carry one key each; inserting between two neighbors
// never requires renumbering the others.
package rank

import (
	"errors"
	"fmt"
	"strings"
)

const (
	base     = 26
	minDigit = 'a'
)

// ErrNoRoom is returned when lower >= upper leaves no key between the two.
// Callers recover by rebalancing the whole sibling set via Between("", "", n).
var ErrNoRoom = errors.New("rank: no room between keys")

// Between returns count strictly increasing keys, each strictly between
// lower and upper. An empty lower means unbounded below, an empty upper
// unbounded above. Keys are produced by recursive bisection so repeated
// midpoint insertion keeps key length shallow in normal use.
func Between(lower, upper string, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("rank: count must be positive, got %d", count)
	}
	if err := validate(lower); err != nil {
		return nil, err
	}
	if err := validate(upper); err != nil {
		return nil, err
	}
	if lower != "" && upper != "" && lower >= upper {
		return nil, ErrNoRoom
	}
	// An upper bound that is the lower bound plus trailing minimum digits
	// ("b" vs "ba") admits nothing in between.
	if upper != "" && strings.TrimRight(upper, "a") <= lower {
		return nil, ErrNoRoom
	}

	keys := make([]string, 0, count)
	bisect(lower, upper, count, &keys)
	return keys, nil
}

// Next returns a single key after lower (append position).
func Next(lower string) (string, error) {
	keys, err := Between(lower, "", 1)
	if err != nil {
		return "", err
	}
	return keys[0], nil
}

// bisect emits count keys between lower and upper in ascending order.
func bisect(lower, upper string, count int, out *[]string) {
	if count == 0 {
		return
	}
	m := mid(lower, upper)
	left := (count - 1) / 2
	bisect(lower, m, left, out)
	*out = append(*out, m)
	bisect(m, upper, count-1-left, out)
}

// mid returns a key strictly between lower and upper. Digits are a-z with
// 'a' acting as zero; produced keys never end in 'a', so the space below
// any generated key stays dense.
func mid(lower, upper string) string {
	var key []byte
	bounded := upper != ""
	for i := 0; ; i++ {
		lo := 0
		if i < len(lower) {
			lo = int(lower[i] - minDigit)
		}
		hi := base
		if bounded {
			if i < len(upper) {
				hi = int(upper[i] - minDigit)
			} else {
				hi = 0
			}
		}
		if hi-lo > 1 {
			return string(append(key, byte(minDigit+(lo+hi)/2)))
		}
		// Equal or adjacent digits: keep the lower digit and descend. Once
		// the prefix diverges below upper, the upper bound no longer binds.
		key = append(key, byte(minDigit+lo))
		if lo < hi {
			bounded = false
		}
	}
}

func validate(key string) error {
	for i := 0; i < len(key); i++ {
		if key[i] < 'a' || key[i] > 'z' {
			return fmt.Errorf("rank: key %q contains invalid character %q", key, key[i])
		}
	}
	return nil
}
