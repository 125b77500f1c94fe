// Package stationarity implements the Augmented Dickey-Fuller unit-root test.
//
// The test regresses Δx[t] on a constant, the lagged level x[t-1] and p lagged
// differences, choosing p by minimum AIC over 0..maxlag with
// maxlag = ceil(12*(n/100)^(1/4)) capped at n/2-2. The statistic is the
// t-value of the level coefficient. P-values use MacKinnon's (1994)
// regression surface and critical values MacKinnon's (2010) finite-sample
// response surface, both for the constant-only case.
package stationarity
