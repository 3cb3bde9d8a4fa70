package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRating is returned when text does not name a known rating.
var ErrInvalidRating = errors.New("invalid rating")

// Rating is the learner's self-assessed recall quality for one review.
type Rating int

const (
	Hard Rating = iota + 1 // Forgotten or recalled with real difficulty.
	Good                   // Recalled with some effort.
	Easy                   // Recalled effortlessly.
)

var ratingNames = [...]string{Hard: "hard", Good: "good", Easy: "easy"}

// Ratings lists every valid rating in ascending order.
func Ratings() []Rating {
	return []Rating{Hard, Good, Easy}
}

// Valid reports whether r is one of Hard, Good or Easy.
func (r Rating) Valid() bool {
	return r >= Hard && r <= Easy
}

func (r Rating) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rating(%d)", int(r))
	}
	return ratingNames[r]
}

// ParseRating converts "hard", "good" or "easy" (any case) into a Rating.
func ParseRating(s string) (Rating, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hard":
		return Hard, nil
	case "good":
		return Good, nil
	case "easy":
		return Easy, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
