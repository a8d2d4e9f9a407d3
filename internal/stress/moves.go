package stress

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// =============================================================================
// Joint Severity
// =============================================================================

// severity joint severity 측정기 (상관행렬 역행렬 캐시)
// 최적화 루프에서 매 평가마다 역행렬을 다시 구하지 않도록 한 번만 만든다
type severity struct {
	inv  *mat.Dense // nil => Euclidean fallback
	mode SeverityMode
}

// newSeverity inverts the crisis correlation matrix.
// 역행렬 계산 실패 시 Euclidean fallback (호출자가 SeverityMode 로 관측)
func newSeverity(corr [][]float64) severity {
	if !squareCorrelation(corr) {
		return severity{mode: SeverityEuclideanFallback}
	}

	data := make([]float64, 0, NumFactors*NumFactors)
	for i := 0; i < NumFactors; i++ {
		data = append(data, corr[i][:NumFactors]...)
	}
	c := mat.NewDense(NumFactors, NumFactors, data)

	var inv mat.Dense
	if err := inv.Inverse(c); err != nil {
		// mat.Condition (near-singular) 포함 모든 실패는 fallback
		return severity{mode: SeverityEuclideanFallback}
	}
	return severity{inv: &inv, mode: SeverityMahalanobis}
}

// squareCorrelation reports whether corr is a NumFactors x NumFactors matrix.
func squareCorrelation(corr [][]float64) bool {
	if len(corr) != NumFactors {
		return false
	}
	for _, row := range corr {
		if len(row) != NumFactors {
			return false
		}
	}
	return true
}

// joint returns sqrt(xᵀ C⁻¹ x), or ‖x‖₂ in fallback mode.
func (s severity) joint(x [NumFactors]float64) float64 {
	if s.inv == nil {
		var sum float64
		for _, v := range x {
			sum += v * v
		}
		return math.Sqrt(sum)
	}

	var q float64
	for i := 0; i < NumFactors; i++ {
		var row float64
		for j := 0; j < NumFactors; j++ {
			row += s.inv.At(i, j) * x[j]
		}
		q += x[i] * row
	}
	// 수치 오차로 인한 음수 방지
	if q < 0 {
		q = 0
	}
	return math.Sqrt(q)
}

// JointSeverity Mahalanobis distance of a shock under the crisis correlation.
// The returned mode tells whether the Euclidean fallback was used.
func JointSeverity(shock ShockParams, stats RiskStats) (float64, SeverityMode) {
	sev := newSeverity(stats.CorrCrisis)
	return sev.joint(shock.Vector()), sev.mode
}

// =============================================================================
// Factor Move Calculator
// =============================================================================

// CalculateFactorMoves σ 단위 충격 → 절대 팩터 이동
// move_i = vol_i × shock_i × √horizon_days
// ⭐ 순수 함수: 같은 입력이면 비트 단위로 같은 결과
func CalculateFactorMoves(shock ShockParams, stats RiskStats) FactorMoves {
	return factorMoves(shock.Vector(), stats, newSeverity(stats.CorrCrisis))
}

func factorMoves(x [NumFactors]float64, stats RiskStats, sev severity) FactorMoves {
	scale := math.Sqrt(float64(stats.HorizonDays))
	vols := stats.Vols()
	return FactorMoves{
		EqMove:       vols[FactorEquity] * x[FactorEquity] * scale,
		VolMove:      vols[FactorVol] * x[FactorVol] * scale,
		FXMove:       vols[FactorFX] * x[FactorFX] * scale,
		IRMove:       vols[FactorRates] * x[FactorRates] * scale,
		JointSigma:   sev.joint(x),
		SeverityMode: sev.mode,
	}
}
