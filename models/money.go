package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cents is a money amount in integer centavos. All persistence and
// comparison happens on this type; floats only appear at the JSON boundary.
type Cents int64

var ErrBadPrice = errors.New("unparseable price")

func (c Cents) Float() float64 {
	return float64(c) / 100
}

// CentsFromFloat converts a currency float (e.g. 1234.56) to centavos,
// rounding to the nearest centavo.
func CentsFromFloat(v float64) Cents {
	return Cents(math.Round(v * 100))
}

// MarshalJSON emits the conventional decimal form (1234.56) so API clients
// see currency values, not centavo counts.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(c.Float(), 'f', 2, 64)), nil
}

func (c *Cents) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*c = CentsFromFloat(v)
	return nil
}

// String renders in Brazilian format: R$ 1.234,56.
func (c Cents) String() string {
	neg := c < 0
	abs := int64(c)
	if neg {
		abs = -abs
	}

	whole := abs / 100
	frac := abs % 100

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), frac)
}

// ParseBRL parses prices as Mercado Livre renders them: "R$ 1.234,56",
// "1.234", "1234,5". The parse stays in integer space so values like
// 0.1 never round-trip through float.
func ParseBRL(raw string) (Cents, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, ErrBadPrice
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadPrice, raw)
	}

	cents := w * 100
	if hasFrac {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadPrice, raw)
		}
		cents += f
	}
	return Cents(cents), nil
}

// PercentChange is the display-only magnitude of a change from old to new,
// rounded to one decimal. Returns 0 when old is zero.
func PercentChange(old, new Cents) float64 {
	if old == 0 {
		return 0
	}
	pct := math.Abs(float64(new-old)/float64(old)) * 100
	return math.Round(pct*10) / 10
}
