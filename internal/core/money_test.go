package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		err  error
	}{
		{"12.34", 1234, nil},
		{"12,34", 1234, nil},
		{"12.345", 1235, nil},
		{"-12.345", -1235, nil},
		{"-5", -500, nil},
		{" 0 ", 0, nil},
		{"0.1", 10, nil},
		{"", 0, ErrMissingAmount},
		{"abc", 0, ErrInvalidAmount},
		{"1,2,3", 0, ErrInvalidAmount},
		{"1e3", 100000, nil},
		{"1.5E2", 15000, nil},
		{"1e30", 0, ErrInvalidAmount},
		{"-1e30", 0, ErrInvalidAmount},
		{"92233720368547758.07", 9223372036854775807, nil},
		{"92233720368547758.08", 0, ErrInvalidAmount},
		{"-92233720368547758.08", 0, ErrInvalidAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q: expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got.Cents != tc.want {
			t.Fatalf("%q: got %d, want %d", tc.in, got.Cents, tc.want)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := map[int64]string{
		0:        "£0.00",
		5:        "£0.05",
		1234:     "£12.34",
		-1234:    "£12.34",
		150000:   "£1500.00",
		-5000050: "£50000.50",
	}
	for cents, want := range cases {
		if got := FormatCurrency(Pence(cents)); got != want {
			t.Fatalf("FormatCurrency(%d) = %q, want %q", cents, got, want)
		}
		if got := Pence(cents).String(); got != want {
			t.Fatalf("String(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A Money `json:"a"`
	}{Pence(-1050)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":-10.50}` {
		t.Fatalf("unexpected json %s", out)
	}

	var m Money
	for in, want := range map[string]int64{`0.1`: 10, `"2.50"`: 250, `null`: 0, `1e2`: 10000} {
		m = Pence(99)
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if m.Cents != want {
			t.Fatalf("%s: got %d, want %d", in, m.Cents, want)
		}
	}
	if err := json.Unmarshal([]byte(`"x"`), &m); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMoneyFloatAvoidsDrift(t *testing.T) {
	// 0.1 + 0.2 accumulated in pence is exact.
	sum := Pence(10).Add(Pence(20))
	if sum.Cents != 30 || sum.Float() != 0.3 {
		t.Fatalf("got %d / %v", sum.Cents, sum.Float())
	}
}

func TestUnmarshalRejectsOutOfRange(t *testing.T) {
	for _, in := range []string{`1e30`, `"-1e30"`, `92233720368547758.08`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Unmarshal(%s) = %d, %v; want ErrInvalidAmount", in, m.Cents, err)
		}
	}
}
