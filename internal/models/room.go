package models

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Room is a bookable room from the catalog.
type Room struct {
	ID               int64
	Name             string
	Capacity         int
	PricePerDayCents int64
	CreatedAt        time.Time
}

// PricePerDay renders the price as a two-decimal string.
func (r *Room) PricePerDay() string {
	return FormatCents(r.PricePerDayCents)
}

// Validate checks catalog constraints.
func (r *Room) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: room name is required", ErrValidation)
	}
	if r.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrValidation)
	}
	if r.PricePerDayCents < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}

func (r *Room) String() string {
	return fmt.Sprintf("%s (%d persons)", r.Name, r.Capacity)
}

// FormatCents renders minor units as a decimal string, e.g. 10050 -> "100.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseCents parses a decimal price with at most two fractional digits.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty price", ErrValidation)
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("%w: invalid price %q", ErrValidation, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if strings.HasPrefix(whole, "-") || strings.HasPrefix(whole, "+") {
		return 0, fmt.Errorf("%w: invalid price %q", ErrValidation, s)
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid price %q", ErrValidation, s)
	}
	if w > (math.MaxInt64-99)/100 {
		return 0, fmt.Errorf("%w: price %q is too large", ErrValidation, s)
	}
	f, err := strconv.ParseUint(frac, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid price %q", ErrValidation, s)
	}
	return w*100 + int64(f), nil
}

// RoomFilter narrows and orders a room listing. Zero values mean "no constraint".
type RoomFilter struct {
	MinCapacity int
	MaxCapacity int
	MinPrice    *int64
	MaxPrice    *int64
	// Ordering is "price_per_day", "capacity", or either prefixed with "-" for descending.
	Ordering string
}

// Match reports whether the room satisfies the filter bounds.
func (f *RoomFilter) Match(r *Room) bool {
	if f == nil {
		return true
	}
	if f.MinCapacity > 0 && r.Capacity < f.MinCapacity {
		return false
	}
	if f.MaxCapacity > 0 && r.Capacity > f.MaxCapacity {
		return false
	}
	if f.MinPrice != nil && r.PricePerDayCents < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && r.PricePerDayCents > *f.MaxPrice {
		return false
	}
	return true
}

// ValidOrdering reports whether the ordering key is supported.
func ValidOrdering(ordering string) bool {
	switch strings.TrimPrefix(ordering, "-") {
	case "", "price_per_day", "capacity":
		return true
	}
	return false
}

// Apply filters rooms and sorts them according to Ordering.
// Input order is kept for ties and when no ordering is requested.
func (f *RoomFilter) Apply(rooms []Room) []Room {
	out := make([]Room, 0, len(rooms))
	for i := range rooms {
		if f.Match(&rooms[i]) {
			out = append(out, rooms[i])
		}
	}
	if f == nil || f.Ordering == "" {
		return out
	}

	desc := strings.HasPrefix(f.Ordering, "-")
	key := strings.TrimPrefix(f.Ordering, "-")
	sort.SliceStable(out, func(i, j int) bool {
		var a, b int64
		switch key {
		case "price_per_day":
			a, b = out[i].PricePerDayCents, out[j].PricePerDayCents
		case "capacity":
			a, b = int64(out[i].Capacity), int64(out[j].Capacity)
		default:
			return false
		}
		if desc {
			return a > b
		}
		return a < b
	})
	return out
}
