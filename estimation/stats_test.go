package estimation

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestStatsJSONNonFiniteRejection(t *testing.T) {
	truth := Trajectory{0, 1, 2}
	s, err := Evaluate(truth, Trajectory{1, 0, 3}, truth, 0)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !math.IsInf(s.NoiseRejection, 1) {
		t.Fatalf("NoiseRejection = %g, want +Inf", s.NoiseRejection)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"noise_rejection":"+Inf"`) {
		t.Errorf("json = %s", data)
	}
	if !strings.Contains(string(data), `"observation_mad":1`) {
		t.Errorf("other fields lost: %s", data)
	}
}

func TestStatsJSONFiniteRejection(t *testing.T) {
	data, err := json.Marshal(Stats{ObservationMAD: 4, EstimateMAD: 2, NoiseRejection: 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v, ok := got["noise_rejection"].(float64); !ok || v != 2 {
		t.Errorf("noise_rejection = %#v, want number 2", got["noise_rejection"])
	}
}

func TestJSONNumber(t *testing.T) {
	cases := map[string]struct {
		in   float64
		want any
	}{
		"finite": {1.5, 1.5},
		"inf":    {math.Inf(1), "+Inf"},
		"-inf":   {math.Inf(-1), "-Inf"},
		"nan":    {math.NaN(), "NaN"},
	}
	for name, tc := range cases {
		if got := JSONNumber(tc.in); got != tc.want {
			t.Errorf("%s: JSONNumber(%g) = %#v, want %#v", name, tc.in, got, tc.want)
		}
	}
}
