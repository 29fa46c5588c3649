package types

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

var maxUint256 = new(uint256.Int).SetAllOne()

func TestCheckedArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		op      func() (*uint256.Int, error)
		want    uint64
		wantErr error
	}{
		{"Add", func() (*uint256.Int, error) { return Add(NewAmount(100), NewAmount(200)) }, 300, nil},
		{"Add overflow", func() (*uint256.Int, error) { return Add(maxUint256, NewAmount(1)) }, 0, ErrOverflow},
		{"Sub", func() (*uint256.Int, error) { return Sub(NewAmount(500), NewAmount(200)) }, 300, nil},
		{"Sub underflow", func() (*uint256.Int, error) { return Sub(NewAmount(1), NewAmount(2)) }, 0, ErrUnderflow},
		{"Mul", func() (*uint256.Int, error) { return Mul(NewAmount(100), NewAmount(3)) }, 300, nil},
		{"Mul overflow", func() (*uint256.Int, error) { return Mul(maxUint256, NewAmount(2)) }, 0, ErrOverflow},
		{"Div floors", func() (*uint256.Int, error) { return Div(NewAmount(10), NewAmount(3)) }, 3, nil},
		{"Div by zero", func() (*uint256.Int, error) { return Div(NewAmount(10), Zero()) }, 0, ErrDivisionByZero},
		{"MulDiv", func() (*uint256.Int, error) { return MulDiv(NewAmount(7), NewAmount(3), NewAmount(2)) }, 10, nil},
		{"MulDiv intermediate overflow", func() (*uint256.Int, error) {
			return MulDiv(maxUint256, NewAmount(2), NewAmount(4))
		}, 0, ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error: got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Uint64() != tt.want {
				t.Errorf("got %s, want %d", got, tt.want)
			}
		})
	}
}

func TestApplyBps(t *testing.T) {
	tests := []struct {
		amount uint64
		bps    uint64
		want   uint64
	}{
		{100, 1000, 10},
		{100, 0, 0},
		{100, 10000, 100},
		{99, 1000, 9},
		{1, 9999, 0},
	}

	for _, tt := range tests {
		got, err := ApplyBps(NewAmount(tt.amount), tt.bps)
		if err != nil {
			t.Fatalf("ApplyBps(%d, %d): %v", tt.amount, tt.bps, err)
		}
		if got.Uint64() != tt.want {
			t.Errorf("ApplyBps(%d, %d) = %s, want %d", tt.amount, tt.bps, got, tt.want)
		}
	}
}

func TestPow10AndUnits(t *testing.T) {
	p, err := Pow10(18)
	if err != nil {
		t.Fatal(err)
	}
	if p.Dec() != "1000000000000000000" {
		t.Errorf("Pow10(18) = %s", p)
	}

	if _, err := Pow10(MaxDecimals); err != nil {
		t.Errorf("Pow10(%d) should fit: %v", MaxDecimals, err)
	}
	if _, err := Pow10(MaxDecimals + 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Pow10(%d) error = %v, want overflow", MaxDecimals+1, err)
	}

	u, err := Units(100, 18)
	if err != nil {
		t.Fatal(err)
	}
	if u.Dec() != "100000000000000000000" {
		t.Errorf("Units(100, 18) = %s", u)
	}
}

func TestParseAndFormatAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "0", false},
		{"42", "42", false},
		{" 7 ", "7", false},
		{"0x10", "16", false},
		{"-1", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", tt.in, err)
		}
		if FormatAmount(got) != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if FormatAmount(nil) != "0" {
		t.Error("FormatAmount(nil) should render 0")
	}
}

func TestOrZeroCopies(t *testing.T) {
	x := NewAmount(5)
	y := OrZero(x)
	y.AddUint64(y, 1)
	if x.Uint64() != 5 {
		t.Errorf("OrZero must copy, original changed to %s", x)
	}
	if !OrZero(nil).IsZero() {
		t.Error("OrZero(nil) should be zero")
	}
}
