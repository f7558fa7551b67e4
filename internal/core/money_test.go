package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseAmountAcceptsStoreNumerics(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"0", 0, true},
		{"0.00", 0, true},
		{"1000000", 100000000, true},
		{"1000000.00", 100000000, true},
		{"250000.5", 25000050, true},
		{"", 0, false},
		{"-5", 0, false},
		{"12a", 0, false},
		{"99999999999999999999", 0, false},
		{"1.0e+16", 1000000000000000000, true},
		{"1.5E2", 15000, true},
		{"2.5e-3", 0, true},
		{"1e-2", 1, true},
		{"1e400", 0, false},
		{"1e17", 0, false},
		{"-1e3", 0, false},
		{"1e", 0, false},
		{"e5", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok && (err != nil || got.Cents != tc.out) {
			t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error, got %d", tc.in, got.Cents)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:         "0.00",
		5:         "0.05",
		123456:    "1234.56",
		-5:        "-0.05",
		100000000: "1000000.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("%d: expected %q, got %q", cents, want, got)
		}
	}
}

func TestMoneyStringRoundTripsThroughParseAmount(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 123456789} {
		m := Money{Cents: cents}
		back, err := ParseAmount(m.String())
		if err != nil || back != m {
			t.Fatalf("%d: got %v err=%v", cents, back, err)
		}
	}
}

func TestParseDecimalToCentsRejectsExponent(t *testing.T) {
	if _, err := ParseDecimalToCents("1e3"); err == nil {
		t.Fatal("user input in exponent form should be rejected")
	}
}
