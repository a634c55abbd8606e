package labeling

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrTooFewObservations is returned when a series is too short for a unit-root test.
var ErrTooFewObservations = errors.New("too few observations for unit-root test")

// MinADFObservations is the shortest series the gate will test.
const MinADFObservations = 20

// ADFOptions configures the augmented Dickey-Fuller test. A negative MaxLag selects
// 12*(n/100)^(1/4); lag order is chosen by AIC unless FixedLag is set.
type ADFOptions struct {
	MaxLag   int
	FixedLag bool
}

// ADFResult is the outcome of the test.
type ADFResult struct {
	Statistic float64
	PValue    float64
	UsedLag   int
	NObs      int
}

// ADF runs the augmented Dickey-Fuller test with a constant term:
//
//	dx[t] = c + g*x[t-1] + sum_i b_i*dx[t-i] + e[t]
//
// The statistic is the t-value of g and the p-value follows MacKinnon (1994).
// Missing values must be removed by the caller.
func ADF(x []float64, opts ADFOptions) (ADFResult, error) {
	nobs := len(x)
	if nobs < 3 {
		return ADFResult{}, ErrTooFewObservations
	}
	maxlag := opts.MaxLag
	if maxlag < 0 {
		maxlag = int(math.Ceil(12 * math.Pow(float64(nobs)/100, 0.25)))
	}
	// one trend term
	if limit := nobs/2 - 2; maxlag > limit {
		maxlag = limit
	}
	if maxlag < 0 {
		return ADFResult{}, ErrTooFewObservations
	}

	dx := make([]float64, nobs-1)
	for i := range dx {
		dx[i] = x[i+1] - x[i]
	}

	lag := maxlag
	if !opts.FixedLag && maxlag > 0 {
		// every candidate is fit on the sample trimmed for maxlag so AIC values compare
		y, full := adfDesign(x, dx, maxlag)
		best := math.Inf(1)
		for l := 0; l <= maxlag; l++ {
			fit, err := ols(y, full, 2+l)
			if err != nil {
				return ADFResult{}, err
			}
			if fit.aic < best {
				best, lag = fit.aic, l
			}
		}
	}

	y, design := adfDesign(x, dx, lag)
	fit, err := ols(y, design, 2+lag)
	if err != nil {
		return ADFResult{}, err
	}
	stat := fit.tvalue(1)
	return ADFResult{
		Statistic: stat,
		PValue:    MacKinnonP(stat),
		UsedLag:   lag,
		NObs:      len(y),
	}, nil
}

// adfDesign builds the response and regressors [1, x[t-1], dx[t-1], ..., dx[t-lag]].
func adfDesign(x, dx []float64, lag int) ([]float64, *mat.Dense) {
	rows := len(dx) - lag
	y := make([]float64, rows)
	design := mat.NewDense(rows, 2+lag, nil)
	for r := 0; r < rows; r++ {
		t := r + lag // index into dx
		y[r] = dx[t]
		design.Set(r, 0, 1)
		design.Set(r, 1, x[t])
		for i := 1; i <= lag; i++ {
			design.Set(r, 1+i, dx[t-i])
		}
	}
	return y, design
}

type olsFit struct {
	beta []float64
	se   []float64
	aic  float64
}

func (f olsFit) tvalue(i int) float64 { return f.beta[i] / f.se[i] }

// ols regresses y on the first k columns of design.
func ols(y []float64, design *mat.Dense, k int) (olsFit, error) {
	n, _ := design.Dims()
	if n <= k {
		return olsFit{}, ErrTooFewObservations
	}
	x := design.Slice(0, n, 0, k)
	yv := mat.NewVecDense(n, y)

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return olsFit{}, fmt.Errorf("adf regression: %w", err)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)
	var beta mat.VecDense
	beta.MulVec(&inv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	ssr := 0.0
	for i := 0; i < n; i++ {
		r := yv.AtVec(i) - fitted.AtVec(i)
		ssr += r * r
	}
	if ssr == 0 {
		return olsFit{}, errors.New("adf regression: perfect fit")
	}

	fn := float64(n)
	sigma2 := ssr / float64(n-k)
	fit := olsFit{beta: make([]float64, k), se: make([]float64, k)}
	for i := 0; i < k; i++ {
		fit.beta[i] = beta.AtVec(i)
		fit.se[i] = math.Sqrt(sigma2 * inv.At(i, i))
	}
	llf := -fn / 2 * (math.Log(2*math.Pi) + math.Log(ssr/fn) + 1)
	fit.aic = -2*llf + 2*float64(k)
	return fit, nil
}

// MacKinnon (1994) response surface for a single series with a constant term.
var (
	tauMax       = 2.74
	tauMin       = -18.83
	tauStar      = -1.61
	tauSmallP    = []float64{2.1659, 1.4412, 0.038269}
	tauLargeP    = []float64{1.7339, 0.93202, -0.12745, -0.010368}
	standardNorm = distuv.UnitNormal
)

// MacKinnonP approximates the p-value of an ADF statistic.
func MacKinnonP(stat float64) float64 {
	switch {
	case math.IsNaN(stat):
		return math.NaN()
	case stat > tauMax:
		return 1
	case stat < tauMin:
		return 0
	}
	coef := tauLargeP
	if stat <= tauStar {
		coef = tauSmallP
	}
	v := 0.0
	for i := len(coef) - 1; i >= 0; i-- {
		v = v*stat + coef[i]
	}
	return standardNorm.CDF(v)
}
