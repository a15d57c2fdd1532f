package core

import "testing"

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.5", 1.5, true},
		{" 2.50 ", 2.5, true},
		{"1,500", 1500, true},
		{"1,234,567.25", 1234567.25, true},
		{"-5", -5, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"-1,500.5", -1500.5, true},
		{"1,2,3", 0, false},
		{"12,34", 0, false},
		{",500", 0, false},
		{"1,500,", 0, false},
		{"1500,000", 0, false},
		{"1,500.0,5", 0, false},
		{"1 ,500", 0, false},
		{"", 0, false},
		{"Inf", 0, false},
		{"NaN", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseNumber(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseOptionalNumber(t *testing.T) {
	v, err := ParseOptionalNumber("   ")
	if err != nil || v != nil {
		t.Fatalf("blank should be nil, got %v %v", v, err)
	}
	v, err = ParseOptionalNumber("3")
	if err != nil || v == nil || *v != 3 {
		t.Fatalf("expected 3, got %v %v", v, err)
	}
	if _, err := ParseOptionalNumber("x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[float64]string{
		0:         "0.00",
		12:        "12.00",
		18000:     "18,000.00",
		1234567.5: "1,234,567.50",
	}
	for in, want := range cases {
		if got := FormatAmount(in); got != want {
			t.Fatalf("FormatAmount(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	cases := map[float64]string{
		12:     "12",
		1234:   "1,234",
		2.5:    "2.5",
		1234.5: "1,234.5",
		0.25:   "0.25",
	}
	for in, want := range cases {
		if got := FormatQuantity(in); got != want {
			t.Fatalf("FormatQuantity(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatQuantityColumn(t *testing.T) {
	cases := map[float64]string{
		12:       "12.00",
		2.5:      "2.50",
		0.125:    "0.125",
		1234.5:   "1,234.50",
		350.25:   "350.25",
		1.0 / 3:  "0.333",
		12.0004:  "12.00",
		1500.126: "1,500.126",
	}
	for in, want := range cases {
		if got := FormatQuantityColumn(in); got != want {
			t.Fatalf("FormatQuantityColumn(%v) = %q, want %q", in, got, want)
		}
	}
}
