package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceQuantity(t *testing.T) {
	tests := []struct {
		raw  interface{}
		want int
	}{
		{float64(2), 2},
		{float64(2.9), 2},
		{float64(-3), -3},
		{"4", 4},
		{" 5 ", 5},
		{"007", 7},
		{"000", 0},
		{"abc", 0},
		{"2.5", 0},
		{"", 0},
		{nil, 0},
		{true, 0},
		{json.Number("6"), 6},
		{3, 3},
		{math.NaN(), 0},
		{float64(1e12), 0},
		{"99999999999", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CoerceQuantity(tt.raw), "raw %#v", tt.raw)
	}
}
