package grading

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePoints(t *testing.T) {
	tests := []struct {
		in      string
		want    Points
		wantErr bool
	}{
		{in: "80", want: 8000},
		{in: "80.5", want: 8050},
		{in: "80.50", want: 8050},
		{in: "80.500", want: 8050},
		{in: "0.01", want: 1},
		{in: ".25", want: 25},
		{in: "5.", want: 500},
		{in: "+3", want: 300},
		{in: "-0.25", want: -25},
		{in: " 7 ", want: 700},
		{in: "", wantErr: true},
		{in: ".", wantErr: true},
		{in: "80.505", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1e2", wantErr: true},
		{in: "--1", wantErr: true},
		{in: "++5", wantErr: true},
		{in: "+-5", wantErr: true},
		{in: "1.+5", wantErr: true},
		{in: "1.-5", wantErr: true},
		{in: "1. 5", wantErr: true},
		{in: "1_000", wantErr: true},
		{in: "184467440737095517", wantErr: true},
		{in: "92233720368547758.08", wantErr: true},
		{in: "9223372036854775808", wantErr: true},
		{in: "92233720368547758.07", want: Points(math.MaxInt64)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePoints(tt.in)
			if tt.wantErr {
				assert.Equal(t, errInvalidPoints, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPoints_String(t *testing.T) {
	assert.Equal(t, "80.50", Points(8050).String())
	assert.Equal(t, "0.01", Points(1).String())
	assert.Equal(t, "-1.05", Points(-105).String())
	assert.Equal(t, "30.00", PointsFromWeight(30).String())
	assert.Equal(t, Points(3333), NewPoints(33.333))
}

func TestPoints_JSON(t *testing.T) {
	var ng struct {
		Points Points `json:"points"`
	}
	for in, want := range map[string]Points{
		`{"points": 24}`:     2400,
		`{"points": 24.75}`:  2475,
		`{"points": "9.5"}`:  950,
		`{"points": null}`:   0,
		`{"points": 0.1000}`: 10,
	} {
		ng.Points = -1
		if assert.NoError(t, json.Unmarshal([]byte(in), &ng), in) {
			assert.Equal(t, want, ng.Points, in)
		}
	}
	assert.Error(t, json.Unmarshal([]byte(`{"points": 1.234}`), &ng))
	assert.Error(t, json.Unmarshal([]byte(`{"points": 184467440737095517}`), &ng))
	assert.Error(t, json.Unmarshal([]byte(`{"points": "++5"}`), &ng))

	ng.Points = 2475
	data, err := json.Marshal(ng)
	if assert.NoError(t, err) {
		assert.JSONEq(t, `{"points": 24.75}`, string(data))
	}
}
