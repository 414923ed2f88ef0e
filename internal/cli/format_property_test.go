// Package cli provides the command-line interface for the stock advisor.
package cli

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any finite percentage, formatPct should:
// 1. Carry an explicit sign, + or -
// 2. Have exactly 2 decimal places
// 3. End with %
// 4. Parse back to the input within rounding error
func TestPercentFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("formatPct produces signed two-decimal percentages", prop.ForAll(
		func(value float64) bool {
			if math.IsNaN(value) || math.IsInf(value, 0) || math.Abs(value) > 1e12 {
				return true
			}

			formatted := formatPct(value)

			if !strings.HasPrefix(formatted, "+") && !strings.HasPrefix(formatted, "-") {
				t.Logf("Expected sign prefix for %f, got %s", value, formatted)
				return false
			}
			if !strings.HasSuffix(formatted, "%") {
				t.Logf("Expected %% suffix for %f, got %s", value, formatted)
				return false
			}

			numPart := strings.TrimSuffix(formatted, "%")
			parts := strings.Split(numPart, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				t.Logf("Expected 2 decimal places for %f, got %s", value, formatted)
				return false
			}

			parsed, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				t.Logf("Unparseable output for %f: %s", value, formatted)
				return false
			}
			return math.Abs(parsed-value) <= 0.005+1e-9*math.Abs(value)
		},
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}

// pnlString embeds the signed value and the formatted percentage.
func TestPnLString(t *testing.T) {
	cases := []struct {
		pnl, pct float64
		want     string
	}{
		{150.0, 7.5, "+150.00 (+7.50%)"},
		{-42.25, -3.1, "-42.25 (-3.10%)"},
		{0, 0, "+0.00 (+0.00%)"},
	}
	for _, tc := range cases {
		if got := pnlString(tc.pnl, tc.pct); got != tc.want {
			t.Errorf("pnlString(%f, %f) = %q, want %q", tc.pnl, tc.pct, got, tc.want)
		}
	}
}

// With colors disabled, Signal and PnL must return the text unchanged; with
// colors enabled, the escape sequences must wrap the original text.
func TestSignalColoring(t *testing.T) {
	var buf bytes.Buffer
	plain := &Output{writer: &buf, colorEnabled: false}

	for _, action := range []string{"BUY", "SELL", "HOLD"} {
		if got := plain.Signal(action); got != action {
			t.Errorf("plain Signal(%q) = %q", action, got)
		}
	}
	if got := plain.PnL(-5, "-5.00"); got != "-5.00" {
		t.Errorf("plain PnL = %q", got)
	}

	colored := &Output{writer: &buf, colorEnabled: true}
	cases := []struct {
		action string
		color  string
	}{
		{"BUY", ColorGreen},
		{"SELL", ColorRed},
		{"HOLD", ColorYellow},
	}
	for _, tc := range cases {
		want := tc.color + tc.action + ColorReset
		if got := colored.Signal(tc.action); got != want {
			t.Errorf("Signal(%q) = %q, want %q", tc.action, got, want)
		}
	}
	if got := colored.PnL(12.5, "+12.50"); got != ColorGreen+"+12.50"+ColorReset {
		t.Errorf("PnL gain = %q", got)
	}
	if got := colored.PnL(-12.5, "-12.50"); got != ColorRed+"-12.50"+ColorReset {
		t.Errorf("PnL loss = %q", got)
	}
}

// JSON mode writes indented JSON to the bound writer.
func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{writer: &buf, jsonMode: true}

	if !out.IsJSON() {
		t.Fatal("expected JSON mode")
	}
	if err := out.JSON(map[string]string{"symbol": "AAPL"}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"symbol": "AAPL"`) {
		t.Errorf("unexpected JSON output: %s", buf.String())
	}
}
