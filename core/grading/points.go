package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var errInvalidPoints = errors.New("invalid points: expected a decimal number with at most two decimal places")

// Points are grade points stored in hundredths, so 80.5 points == Points(8050).
// Fixed-point keeps comparisons against an evaluation's weight exact.
type Points int64

// PointsFromWeight converts a whole-number weight to Points.
func PointsFromWeight(w int) Points { return Points(w) * 100 }

// NewPoints rounds `f` to two decimal places.
func NewPoints(f float64) Points { return Points(math.Round(f * 100)) }

// ParsePoints parses a decimal string such as "80", "80.5" or "-0.25".
// Only ASCII digits are accepted around the decimal point, and values that do not fit Points are rejected.
func ParsePoints(s string) (Points, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errInvalidPoints
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, errInvalidPoints
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return 0, errInvalidPoints
	}
	fracPart = strings.TrimRight(fracPart, "0")
	if len(fracPart) > 2 {
		return 0, errInvalidPoints
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}
	if intPart == "" {
		intPart = "0"
	}
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, errInvalidPoints
	}
	frac, _ := strconv.ParseInt(fracPart, 10, 64) // two digits
	if whole > (math.MaxInt64-frac)/100 {
		return 0, errInvalidPoints
	}
	p := Points(whole*100 + frac)
	if neg {
		p = -p
	}
	return p, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (p Points) Float64() float64 { return float64(p) / 100 }

func (p Points) String() string {
	sign := ""
	v := int64(p)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (p Points) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(p.Float64(), 'f', -1, 64)), nil
}

func (p *Points) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		*p = 0
		return nil
	}
	parsed, err := ParsePoints(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
