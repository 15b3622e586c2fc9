package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a date
func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 01:00 local on March 2nd is still March 1st in UTC; the local day wins.
	ts := time.Date(2026, 3, 2, 1, 0, 0, 0, loc)
	assert.Equal(t, day(2026, 3, 2), DateOf(ts))
	assert.Equal(t, day(2026, 3, 1), DateOf(ts.UTC()))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, day(2026, 3, 1), d)

	for _, in := range []string{"", "01-03-2026", "2026-13-01", "tomorrow"} {
		_, err := ParseDate(in)
		assert.Truef(t, errors.Is(err, ErrValidation), "input %q", in)
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{"valid", day(2026, 3, 1), day(2026, 3, 5), false},
		{"one day", day(2026, 3, 1), day(2026, 3, 2), false},
		{"zero length", day(2026, 3, 1), day(2026, 3, 1), true},
		{"reversed", day(2026, 3, 5), day(2026, 3, 1), true},
		{"missing start", time.Time{}, day(2026, 3, 1), true},
		{"missing end", day(2026, 3, 1), time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.start, tt.end)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoom_Validate(t *testing.T) {
	assert.NoError(t, (&Room{Name: "Room 1", Capacity: 2, PricePerDayCents: 10000}).Validate())
	assert.ErrorIs(t, (&Room{Name: " ", Capacity: 2}).Validate(), ErrValidation)
	assert.ErrorIs(t, (&Room{Name: "Room", Capacity: 0}).Validate(), ErrValidation)
	assert.ErrorIs(t, (&Room{Name: "Room", Capacity: 1, PricePerDayCents: -1}).Validate(), ErrValidation)
}

func TestCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"100", 10000, true},
		{"100.5", 10050, true},
		{"100.05", 10005, true},
		{"0.99", 99, true},
		{"100.", 0, false},
		{"1.234", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"92233720368547758.07", 0, false},
		{"92233720368547759", 0, false},
		{"92233720368547757.99", 9223372036854775799, true},
	}

	for _, tt := range tests {
		got, err := ParseCents(tt.in)
		if !tt.ok {
			assert.Errorf(t, err, "input %q", tt.in)
			continue
		}
		require.NoErrorf(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}

	assert.Equal(t, "100.50", FormatCents(10050))
	assert.Equal(t, "0.07", FormatCents(7))
}

func TestRoomFilter_Apply(t *testing.T) {
	rooms := []Room{
		{ID: 1, Name: "A", Capacity: 2, PricePerDayCents: 10000},
		{ID: 2, Name: "B", Capacity: 4, PricePerDayCents: 5000},
		{ID: 3, Name: "C", Capacity: 1, PricePerDayCents: 20000},
	}
	maxPrice := int64(15000)

	ids := func(rs []Room) []int64 {
		out := make([]int64, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	var nilFilter *RoomFilter
	assert.Equal(t, []int64{1, 2, 3}, ids(nilFilter.Apply(rooms)))
	assert.Equal(t, []int64{1, 2}, ids((&RoomFilter{MinCapacity: 2}).Apply(rooms)))
	assert.Equal(t, []int64{1, 2}, ids((&RoomFilter{MaxPrice: &maxPrice}).Apply(rooms)))
	assert.Equal(t, []int64{2, 1, 3}, ids((&RoomFilter{Ordering: "price_per_day"}).Apply(rooms)))
	assert.Equal(t, []int64{2, 1, 3}, ids((&RoomFilter{Ordering: "-capacity"}).Apply(rooms)))

	assert.True(t, ValidOrdering("-price_per_day"))
	assert.False(t, ValidOrdering("name"))
}

func TestReservation_Helpers(t *testing.T) {
	r := Reservation{RoomID: 7, StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 5)}
	assert.True(t, r.IsActive())
	assert.Equal(t, 4, r.Nights())
	assert.Equal(t, "room 7 | 2026-03-01 - 2026-03-05", r.String())

	r.Cancelled = true
	assert.False(t, r.IsActive())
}
