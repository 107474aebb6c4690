package captest

import (
	"fmt"
	"strconv"
	"strings"
)

// ToleranceSign defines how the passing band sits around the nameplate rating.
type ToleranceSign string

const (
	SignPlusMinus ToleranceSign = "+/-"
	SignMinusPlus ToleranceSign = "-/+"
	SignPlus      ToleranceSign = "+"
	SignMinus     ToleranceSign = "-"
)

// ToleranceFormatError reports a tolerance string whose sign is not one of
// '+', '-', '+/-' or '-/+'. It is a user-configuration mistake and is always
// surfaced, never defaulted.
type ToleranceFormatError struct {
	Input string
}

func (e *ToleranceFormatError) Error() string {
	return fmt.Sprintf("tolerance sign must be '+', '-', '+/-', or '-/+': got %q", e.Input)
}

// Tolerance is the capacity-test acceptance band specification, e.g. "+/- 10"
// for nameplate plus or minus ten percent.
type Tolerance struct {
	Sign    ToleranceSign
	Percent float64
}

// ParseTolerance parses strings of the form "<sign> <percent>".
func ParseTolerance(s string) (Tolerance, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) != 2 {
		return Tolerance{}, &ToleranceFormatError{Input: s}
	}
	sign := ToleranceSign(parts[0])
	switch sign {
	case SignPlusMinus, SignMinusPlus, SignPlus, SignMinus:
	default:
		return Tolerance{}, &ToleranceFormatError{Input: parts[0]}
	}
	percent, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || percent < 0 {
		return Tolerance{}, &ToleranceFormatError{Input: s}
	}
	return Tolerance{Sign: sign, Percent: percent}, nil
}

// Band returns the inclusive passing capacity bounds around nameplate.
func (t Tolerance) Band(nameplate float64) (lower, upper float64, err error) {
	plus := nameplate * (1 + t.Percent/100)
	minus := nameplate * (1 - t.Percent/100)
	switch t.Sign {
	case SignPlusMinus, SignMinusPlus:
		return minus, plus, nil
	case SignPlus:
		return nameplate, plus, nil
	case SignMinus:
		return minus, nameplate, nil
	default:
		return 0, 0, &ToleranceFormatError{Input: string(t.Sign)}
	}
}

// String renders the tolerance in its parseable form.
func (t Tolerance) String() string {
	return fmt.Sprintf("%s %g", t.Sign, t.Percent)
}
