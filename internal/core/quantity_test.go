package core

import (
	"errors"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestDeriveQuantity(t *testing.T) {
	cases := []struct {
		name       string
		mode       CalcMode
		in         Dimensions
		wantQty    float64
		wantDetail string
	}{
		{"area", ModeArea, Dimensions{Width: f(3), Length: f(4)}, 12, "(3 x 4 = 12.00)"},
		{"area fractional", ModeArea, Dimensions{Width: f(2.5), Length: f(4)}, 10, "(2.5 x 4 = 10.00)"},
		{"volume", ModeVolume, Dimensions{Width: f(2), Length: f(3), Height: f(4)}, 24, "(2 x 3 x 4 = 24.00)"},
		{"manual", ModeManual, Dimensions{Quantity: f(12)}, 12, "(12)"},
		{"manual grouped", ModeManual, Dimensions{Quantity: f(1500)}, 1500, "(1,500)"},
		{"manual zero has no detail", ModeManual, Dimensions{Quantity: f(0)}, 0, ""},
		{"blank mode is manual", "", Dimensions{Quantity: f(2.5)}, 2.5, "(2.5)"},
		{"area ignores quantity", ModeArea, Dimensions{Quantity: f(99), Width: f(1), Length: f(2)}, 2, "(1 x 2 = 2.00)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, detail, err := DeriveQuantity(tc.mode, tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q != tc.wantQty || detail != tc.wantDetail {
				t.Fatalf("got (%v, %q), want (%v, %q)", q, detail, tc.wantQty, tc.wantDetail)
			}
		})
	}
}

func TestDeriveQuantityErrors(t *testing.T) {
	cases := []struct {
		name string
		mode CalcMode
		in   Dimensions
		want error
	}{
		{"area missing length", ModeArea, Dimensions{Width: f(3)}, ErrAreaInputs},
		{"area missing both", ModeArea, Dimensions{}, ErrAreaInputs},
		{"volume missing height", ModeVolume, Dimensions{Width: f(2), Length: f(3)}, ErrVolumeInputs},
		{"manual missing", ModeManual, Dimensions{}, ErrQuantityRequired},
		{"unknown mode", CalcMode("perimeter"), Dimensions{Quantity: f(1)}, ErrUnknownMode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DeriveQuantity(tc.mode, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidation(err) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestAreaErrorMessage(t *testing.T) {
	_, _, err := DeriveQuantity(ModeArea, Dimensions{Width: f(1)})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Err.Error() != "width and length required" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestParseCalcMode(t *testing.T) {
	for in, want := range map[string]CalcMode{"": ModeManual, "manual": ModeManual, "area": ModeArea, "volume": ModeVolume} {
		got, err := ParseCalcMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseCalcMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseCalcMode("cube"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
