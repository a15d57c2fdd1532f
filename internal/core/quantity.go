package core

import (
	"errors"
	"fmt"
	"strconv"
)

// CalcMode selects how a quantity is entered.
type CalcMode string

const (
	ModeManual CalcMode = "manual"
	ModeArea   CalcMode = "area"
	ModeVolume CalcMode = "volume"
)

var (
	ErrUnknownMode      = errors.New("unknown quantity mode")
	ErrAreaInputs       = errors.New("width and length required")
	ErrVolumeInputs     = errors.New("width, length and height required")
	ErrQuantityRequired = errors.New("quantity required")
)

// Dimensions holds the raw inputs of a quantity derivation. A nil field
// means the user left it blank.
type Dimensions struct {
	Quantity *float64
	Width    *float64
	Length   *float64
	Height   *float64
}

// ParseCalcMode maps form values to a mode; blank means manual.
func ParseCalcMode(s string) (CalcMode, error) {
	switch CalcMode(s) {
	case "", ModeManual:
		return ModeManual, nil
	case ModeArea, ModeVolume:
		return CalcMode(s), nil
	default:
		return "", &ValidationError{Field: "calc_type", Err: ErrUnknownMode}
	}
}

// DeriveQuantity computes the quantity and its human-readable derivation
// note for the given mode. It has no side effects.
//
//	manual {12}         -> 12, "(12)"
//	area   {3, 4}       -> 12, "(3 x 4 = 12.00)"
//	volume {2, 3, 4}    -> 24, "(2 x 3 x 4 = 24.00)"
func DeriveQuantity(mode CalcMode, in Dimensions) (float64, string, error) {
	switch mode {
	case ModeManual, "":
		if in.Quantity == nil {
			return 0, "", &ValidationError{Field: "quantity", Err: ErrQuantityRequired}
		}
		q := *in.Quantity
		if !isFinite(q) {
			return 0, "", &ValidationError{Field: "quantity", Err: ErrInvalidQuantity}
		}
		if q > 0 {
			return q, fmt.Sprintf("(%s)", FormatQuantity(q)), nil
		}
		return q, "", nil

	case ModeArea:
		if !present(in.Width) || !present(in.Length) {
			return 0, "", &ValidationError{Field: "dimensions", Err: ErrAreaInputs}
		}
		w, l := *in.Width, *in.Length
		q := w * l
		return q, fmt.Sprintf("(%s x %s = %s)", FormatNumber(w), FormatNumber(l), fixed2(q)), nil

	case ModeVolume:
		if !present(in.Width) || !present(in.Length) || !present(in.Height) {
			return 0, "", &ValidationError{Field: "dimensions", Err: ErrVolumeInputs}
		}
		w, l, h := *in.Width, *in.Length, *in.Height
		q := w * l * h
		return q, fmt.Sprintf("(%s x %s x %s = %s)", FormatNumber(w), FormatNumber(l), FormatNumber(h), fixed2(q)), nil

	default:
		return 0, "", &ValidationError{Field: "calc_type", Err: ErrUnknownMode}
	}
}

func present(f *float64) bool {
	return f != nil && isFinite(*f)
}

func fixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
