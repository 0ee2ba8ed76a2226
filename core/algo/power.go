package algo

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// Convergence settings for the noncentral t series.
const (
	nctErrMax  = 1e-12
	nctIterMax = 1000
)

// EffectSize returns |mean| / std, or 0 when std is zero.
func EffectSize(mean, std float64) float64 {
	if std == 0 || NoSpread(std*std, mean) {
		return 0
	}
	return math.Abs(mean) / std
}

// PairedTTestPower is the power of a two-sided one-sample t-test on n paired
// differences with standardized effect size es at level alpha:
// P(|T'| > t_crit) where T' is noncentral t with n-1 degrees of freedom and
// noncentrality es*sqrt(n). It is NaN for n < 2 or a non-finite effect.
func PairedTTestPower(es float64, n int, alpha float64) float64 {
	if n < 2 || math.IsNaN(es) || math.IsInf(es, 0) {
		return math.NaN()
	}
	df := float64(n - 1)
	nc := es * math.Sqrt(float64(n))

	central := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	crit := central.Quantile(1 - alpha/2)

	upper := 1 - NoncentralTCDF(crit, df, nc)
	lower := NoncentralTCDF(-crit, df, nc)
	return upper + lower
}

// NoncentralTCDF returns P(T <= t) for a noncentral t distribution with df
// degrees of freedom and noncentrality delta. It sums the twin Poisson-weighted
// incomplete beta series of Lenth's AS 243.
func NoncentralTCDF(t, df, delta float64) float64 {
	if df <= 0 || math.IsNaN(t) || math.IsNaN(df) || math.IsNaN(delta) {
		return math.NaN()
	}
	if math.IsInf(t, 1) {
		return 1
	}
	if math.IsInf(t, -1) {
		return 0
	}

	tt, del := t, delta
	negdel := false
	if t < 0 {
		negdel = true
		tt, del = -t, -delta
	}

	// Large df or huge noncentrality: use the normal approximation.
	if df > 4e5 || del*del > 2*math.Ln2*1021 {
		s := 1 / (4 * df)
		normal := distuv.Normal{Mu: del, Sigma: math.Sqrt(1 + tt*tt*2*s)}
		p := normal.CDF(tt * (1 - s))
		if negdel {
			return 1 - p
		}
		return p
	}

	x := tt * tt / (tt*tt + df)
	var tnc float64
	if x > 0 {
		lambda := del * del
		p := 0.5 * math.Exp(-0.5*lambda)
		if p == 0 {
			// exp underflow; the series carries no mass
			if negdel {
				return 1
			}
			return 0
		}
		q := math.Sqrt(2/math.Pi) * p * del
		s := 0.5 - p
		if s < 1e-7 {
			s = -0.5 * math.Expm1(-0.5*lambda)
		}
		a := 0.5
		b := 0.5 * df
		rxb := math.Pow(1-x, b)
		lgB, _ := math.Lgamma(b)
		lgHalfB, _ := math.Lgamma(0.5 + b)
		albeta := 0.5*math.Log(math.Pi) + lgB - lgHalfB
		xodd := mathext.RegIncBeta(a, b, x)
		godd := 2 * rxb * math.Exp(a*math.Log(x)-albeta)
		bx := b * x
		xeven := 1 - rxb
		if bx < epsilon {
			xeven = bx
		}
		geven := bx * rxb
		tnc = p*xodd + q*xeven

		for it := 1; it <= nctIterMax; it++ {
			a++
			xodd -= godd
			xeven -= geven
			godd *= x * (a + b - 1) / a
			geven *= x * (a + b - 0.5) / (a + 0.5)
			p *= lambda / float64(2*it)
			q *= lambda / float64(2*it+1)
			tnc += p*xodd + q*xeven
			s -= p
			if s < -1e-10 {
				break
			}
			if s <= 0 && it > 1 {
				break
			}
			if errbd := 2 * s * (xodd - godd); math.Abs(errbd) < nctErrMax {
				break
			}
		}
	}

	tnc += distuv.UnitNormal.CDF(-del)
	tnc = math.Min(tnc, 1)
	if negdel {
		return 1 - tnc
	}
	return tnc
}

// epsilon is the float64 machine epsilon.
const epsilon = 2.220446049250313e-16
