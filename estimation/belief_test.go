package estimation

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/wyfcoding/kalmantrack/xerrors"
)

func randomBeliefs(seed uint64, n int) []Belief {
	r := rand.New(rand.NewPCG(seed, 7))
	out := make([]Belief, n)
	for i := range out {
		out[i] = Belief{
			Mean:     r.Float64()*200 - 100,
			Variance: 0.01 + r.Float64()*500,
		}
	}
	return out
}

func TestPredictVarianceNeverShrinks(t *testing.T) {
	for _, b := range append(randomBeliefs(1, 200), Placeholder(3)) {
		for _, q := range []float64{0, 1e-6, 3, 1000} {
			p := Predict(b, 9, 0.01, q)
			if p.Variance < b.Variance {
				t.Fatalf("Predict(%+v, q=%g).Variance = %g < prior", b, q, p.Variance)
			}
			if want := b.Mean + 9*0.01; math.Abs(p.Mean-want) > 1e-12 {
				t.Fatalf("Predict mean = %g, want %g", p.Mean, want)
			}
		}
	}
}

func TestUpdateContractsVariance(t *testing.T) {
	for _, b := range randomBeliefs(2, 200) {
		for _, r := range []float64{0.05, 1, 200, 900} {
			post := Update(b, 12.5, r)
			if post.Variance >= b.Variance || post.Variance >= r {
				t.Fatalf("Update(%+v, r=%g).Variance = %g, want < both", b, r, post.Variance)
			}
			if post.Variance <= 0 {
				t.Fatalf("posterior variance must stay positive, got %g", post.Variance)
			}
		}
	}
}

func TestUpdateMeanBetweenPriorAndMeasurement(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 3))
	for _, b := range randomBeliefs(4, 500) {
		z := r.Float64()*400 - 200
		post := Update(b, z, 0.1+r.Float64()*300)
		lo, hi := math.Min(b.Mean, z), math.Max(b.Mean, z)
		if post.Mean < lo || post.Mean > hi {
			t.Fatalf("posterior mean %g outside [%g, %g]", post.Mean, lo, hi)
		}
	}
}

func TestUpdateTrustsSmallerVariance(t *testing.T) {
	prior := Belief{Mean: 0, Variance: 1}
	post := Update(prior, 10, 100)
	if post.Mean > 1 {
		t.Errorf("confident prior should dominate, mean = %g", post.Mean)
	}
	post = Update(Belief{Mean: 0, Variance: 100}, 10, 1)
	if post.Mean < 9 {
		t.Errorf("confident measurement should dominate, mean = %g", post.Mean)
	}
	if want := 10.0 * 100 / 101; math.Abs(post.Mean-want) > 1e-12 {
		t.Errorf("mean = %g, want %g", post.Mean, want)
	}
}

func TestUpdateFirstStepCollapse(t *testing.T) {
	for _, z := range []float64{-50, 0, 1, 3.75, 1e6} {
		for _, r := range []float64{1e-9, 1, 200} {
			post := Update(Placeholder(1), z, r)
			if post.Mean != z {
				t.Errorf("Update(placeholder, %g, %g).Mean = %g, want %g", z, r, post.Mean, z)
			}
			if post.Variance != 0 {
				t.Errorf("Update(placeholder, %g, %g).Variance = %g, want 0", z, r, post.Variance)
			}
		}
	}
}

func TestUpdateDegenerateFusionPanics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, xerrors.ErrDegenerateFusion) {
			t.Fatalf("expected degenerate fusion panic, got %v", r)
		}
	}()
	Update(Belief{Mean: 0, Variance: 1}, 5, -2)
}

func TestConfidence(t *testing.T) {
	if c := Placeholder(0).Confidence(); c != 1 {
		t.Errorf("placeholder confidence = %g, want 1", c)
	}
	if c := (Belief{Variance: 3}).Confidence(); c != 0.25 {
		t.Errorf("confidence = %g, want 0.25", c)
	}
}

func TestFuseZeroVariancePriorKeepsModel(t *testing.T) {
	post := Fuse(Belief{Mean: 3, Variance: 0}, 10, 5)
	if post.Mean != 3 || post.Variance != 0 {
		t.Errorf("Fuse({3 0}, 10, 5) = %+v, want {3 0}", post)
	}

	post = Fuse(Belief{Mean: 3, Variance: 4}, 10, 0)
	if post.Mean != 10 || post.Variance != 0 {
		t.Errorf("Fuse({3 4}, 10, 0) = %+v, want {10 0}", post)
	}
}

func TestFuseZeroDenominatorPanics(t *testing.T) {
	defer func() {
		err, ok := recover().(error)
		if !ok || !errors.Is(err, xerrors.ErrDegenerateFusion) {
			t.Fatalf("expected degenerate fusion panic, got %v", err)
		}
	}()
	Fuse(Belief{Mean: 1, Variance: 0}, 5, 0)
}
