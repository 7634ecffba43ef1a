// Package ttesting holds small t.Run-based assertion helpers shared by the
// codec test suites.
package ttesting

import (
	"bytes"
	"testing"
)

func AssertEqualInt(t *testing.T, name string, got, want int) {
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %d; want %d", got, want)
		}
	})
}

func AssertEqualUint16(t *testing.T, name string, got, want uint16) {
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %d; want %d", got, want)
		}
	})
}

func AssertEqualUint32(t *testing.T, name string, got, want uint32) {
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %d; want %d", got, want)
		}
	})
}

func AssertEqualString(t *testing.T, name string, got, want string) {
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %q; want %q", got, want)
		}
	})
}

func AssertEqualBool(t *testing.T, name string, got, want bool) {
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %t; want %t", got, want)
		}
	})
}

func AssertEqualBytes(t *testing.T, name string, got, want []byte) {
	t.Run(name, func(t *testing.T) {
		if !bytes.Equal(got, want) {
			t.Errorf("got %x; want %x", got, want)
		}
	})
}

func AssertInRangeUint32(t *testing.T, name string, got, wantMin, wantMax uint32) {
	t.Run(name, func(t *testing.T) {
		if got < wantMin || got > wantMax {
			t.Errorf("got %d; want [%d,%d]", got, wantMin, wantMax)
		}
	})
}

func AssertInRangeFloat64(t *testing.T, name string, got, wantMin, wantMax float64) {
	t.Run(name, func(t *testing.T) {
		if got < wantMin || got > wantMax {
			t.Errorf("got %f; want [%f,%f]", got, wantMin, wantMax)
		}
	})
}

func AssertNoError(t *testing.T, name string, err error) {
	t.Run(name, func(t *testing.T) {
		if err != nil {
			t.Errorf("got error %v; want nil", err)
		}
	})
}
