// Package pricing provides Black-Scholes option valuation used to
// synthesize chain premiums when live quotes are unavailable.
package pricing

import "math"

// NormCDF returns the standard normal cumulative distribution at x.
func NormCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// CallPrice returns the Black-Scholes value of a European call.
// S is spot, K strike, t time to expiry in years, r the risk-free rate and
// sigma the annualized volatility as a decimal (0.14 = 14%).
func CallPrice(s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 {
		return intrinsic(s - k)
	}
	d1, d2 := d1d2(s, k, t, r, sigma)
	return s*NormCDF(d1) - k*math.Exp(-r*t)*NormCDF(d2)
}

// PutPrice returns the Black-Scholes value of a European put.
func PutPrice(s, k, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 {
		return intrinsic(k - s)
	}
	d1, d2 := d1d2(s, k, t, r, sigma)
	return k*math.Exp(-r*t)*NormCDF(-d2) - s*NormCDF(-d1)
}

func d1d2(s, k, t, r, sigma float64) (float64, float64) {
	vt := sigma * math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / vt
	return d1, d1 - vt
}

func intrinsic(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}
