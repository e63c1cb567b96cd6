// Package dosage parses free-text medication doses such as "400 mg",
// "2x 500mg" or "1,5 ml" and totals them per day.
package dosage

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparsable is returned for dose strings the pattern does not recognize.
var ErrUnparsable = errors.New("unparsable dose")

// Unit is a normalized dose unit.
type Unit string

const (
	UnitMilligram  Unit = "mg"
	UnitGram       Unit = "g"
	UnitMicrogram  Unit = "µg"
	UnitMilliliter Unit = "ml"
	UnitDrop       Unit = "tropfen"
	UnitPiece      Unit = "stk"
	UnitNone       Unit = ""
)

var unitAliases = map[string]Unit{
	"mg":         UnitMilligram,
	"milligramm": UnitMilligram,
	"g":          UnitGram,
	"gramm":      UnitGram,
	"µg":         UnitMicrogram,
	"μg":         UnitMicrogram,
	"ug":         UnitMicrogram,
	"mcg":        UnitMicrogram,
	"ml":         UnitMilliliter,
	"tropfen":    UnitDrop,
	"trpf":       UnitDrop,
	"stk":        UnitPiece,
	"stück":      UnitPiece,
	"tablette":   UnitPiece,
	"tabletten":  UnitPiece,
	"tbl":        UnitPiece,
	"kapsel":     UnitPiece,
	"kapseln":    UnitPiece,
}

// dosePattern: optional "<n> x" multiplier, amount with comma or dot
// decimals, optional unit word.
var dosePattern = regexp.MustCompile(`^(?:(\d+)\s*[x×*]\s*)?(\d+(?:[.,]\d+)?)\s*([\p{L}µμ.]*)$`)

// Dose is a parsed dose.
type Dose struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
	Unit   Unit    `json:"unit"`
}

// Total returns Count * Amount.
func (d Dose) Total() float64 { return float64(d.Count) * d.Amount }

// Milligrams converts mass doses to milligrams.
func (d Dose) Milligrams() (float64, bool) {
	switch d.Unit {
	case UnitMilligram:
		return d.Total(), true
	case UnitGram:
		return d.Total() * 1000, true
	case UnitMicrogram:
		return d.Total() / 1000, true
	default:
		return 0, false
	}
}

func (d Dose) String() string {
	amount := strconv.FormatFloat(d.Amount, 'f', -1, 64)
	s := amount
	if d.Unit != UnitNone {
		s += " " + string(d.Unit)
	}
	if d.Count > 1 {
		s = fmt.Sprintf("%dx %s", d.Count, s)
	}
	return s
}

// Parse interprets a dose string.
func Parse(s string) (Dose, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	m := dosePattern.FindStringSubmatch(in)
	if m == nil {
		return Dose{}, fmt.Errorf("%w: %q", ErrUnparsable, s)
	}
	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Dose{}, fmt.Errorf("%w: %q", ErrUnparsable, s)
		}
		count = n
	}
	amount, err := strconv.ParseFloat(strings.Replace(m[2], ",", ".", 1), 64)
	if err != nil {
		return Dose{}, fmt.Errorf("%w: %q", ErrUnparsable, s)
	}
	unitWord := strings.TrimSuffix(m[3], ".")
	unit := UnitNone
	if unitWord != "" {
		u, ok := unitAliases[unitWord]
		if !ok {
			return Dose{}, fmt.Errorf("%w: unknown unit %q", ErrUnparsable, m[3])
		}
		unit = u
	}
	return Dose{Count: count, Amount: amount, Unit: unit}, nil
}
