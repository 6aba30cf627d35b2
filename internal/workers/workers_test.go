package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvOverride, "")
	cpus := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{name: "one per CPU", multiplier: 1.0, limit: 0, want: cpus},
		{name: "two per CPU", multiplier: 2.0, limit: 0, want: cpus * 2},
		{name: "capped", multiplier: 2.0, limit: 1, want: 1},
		{name: "zero multiplier floors at one", multiplier: 0, limit: 0, want: 1},
		{name: "negative multiplier floors at one", multiplier: -3, limit: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	cpus := runtime.GOMAXPROCS(0)

	tests := []struct {
		name     string
		envValue string
		limit    int
		want     int
	}{
		{name: "valid override", envValue: "8", limit: 0, want: 8},
		{name: "override capped by limit", envValue: "20", limit: 10, want: 10},
		{name: "override below limit", envValue: "5", limit: 10, want: 5},
		{name: "non-numeric ignored", envValue: "lots", limit: 0, want: cpus},
		{name: "zero ignored", envValue: "0", limit: 0, want: cpus},
		{name: "negative ignored", envValue: "-5", limit: 0, want: cpus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvOverride, tt.envValue)
			if got := Count(1.0, tt.limit); got != tt.want {
				t.Errorf("Count(1.0, %d) with %s=%q = %d, want %d", tt.limit, EnvOverride, tt.envValue, got, tt.want)
			}
		})
	}
}

func TestForIO(t *testing.T) {
	t.Setenv(EnvOverride, "")

	for _, limit := range []int{0, 1, 8} {
		got := ForIO(limit)
		if got < 1 {
			t.Errorf("ForIO(%d) = %d, want >= 1", limit, got)
		}
		if limit > 0 && got > limit {
			t.Errorf("ForIO(%d) = %d, exceeds limit", limit, got)
		}
	}
}

func TestForMixed(t *testing.T) {
	t.Setenv(EnvOverride, "")

	want := max(int(float64(runtime.GOMAXPROCS(0))*1.5), 1)
	if got := ForMixed(0); got != want {
		t.Errorf("ForMixed(0) = %d, want %d", got, want)
	}
}

func BenchmarkCount(b *testing.B) {
	b.Setenv(EnvOverride, "")
	for i := 0; i < b.N; i++ {
		_ = Count(1.5, 10)
	}
}
