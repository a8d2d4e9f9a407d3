package stress

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidRiskStats = errors.New("invalid risk stats")
	ErrInvalidScenario  = errors.New("invalid scenario")
	ErrInvalidShock     = errors.New("invalid shock")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// symmetryTol absolute tolerance for C[i][j] == C[j][i]
const symmetryTol = 1e-9

// ValidationError 검증 실패 (해당 시나리오 평가 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidStats(field, msg string) error {
	return fmt.Errorf("%w: %w", ErrInvalidRiskStats, ValidationError{Field: field, Message: msg})
}

func invalidScenario(field, msg string) error {
	return fmt.Errorf("%w: %w", ErrInvalidScenario, ValidationError{Field: field, Message: msg})
}

// ValidateRiskStats fails fast on a malformed risk model.
// 기본값으로 대체하지 않는다
func ValidateRiskStats(s RiskStats) error {
	volFields := [NumFactors]string{"eq_vol", "vol_of_vol", "fx_vol", "ir_vol"}
	for i, v := range s.Vols() {
		if !(v > 0) || math.IsInf(v, 0) {
			return invalidStats(volFields[i], fmt.Sprintf("must be > 0, got %v", v))
		}
	}
	if s.HorizonDays <= 0 {
		return invalidStats("horizon_days", fmt.Sprintf("must be > 0, got %d", s.HorizonDays))
	}
	if !(s.MaxFactorSigma > 0) || math.IsInf(s.MaxFactorSigma, 0) {
		return invalidStats("max_factor_sigma", fmt.Sprintf("must be > 0, got %v", s.MaxFactorSigma))
	}
	if !(s.MaxJointSigma > 0) || math.IsInf(s.MaxJointSigma, 0) {
		return invalidStats("max_joint_sigma", fmt.Sprintf("must be > 0, got %v", s.MaxJointSigma))
	}
	return validateCorrelation(s.CorrCrisis)
}

func validateCorrelation(c [][]float64) error {
	if len(c) != NumFactors {
		return invalidStats("corr_crisis", fmt.Sprintf("must have %d rows, got %d", NumFactors, len(c)))
	}
	for i, row := range c {
		if len(row) != NumFactors {
			return invalidStats(fmt.Sprintf("corr_crisis[%d]", i),
				fmt.Sprintf("must have %d columns, got %d", NumFactors, len(row)))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return invalidStats(fmt.Sprintf("corr_crisis[%d][%d]", i, j), "must be finite")
			}
		}
	}
	for i := 0; i < NumFactors; i++ {
		for j := i + 1; j < NumFactors; j++ {
			if math.Abs(c[i][j]-c[j][i]) > symmetryTol {
				return invalidStats(fmt.Sprintf("corr_crisis[%d][%d]", i, j),
					fmt.Sprintf("not symmetric (%v vs %v)", c[i][j], c[j][i]))
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(symDense(c)); !ok {
		return invalidStats("corr_crisis", "must be positive definite")
	}
	return nil
}

// ValidateScenario checks instrument data and leg disjointness.
// 빈 레그는 허용 (P&L 0)
func ValidateScenario(s Scenario) error {
	if s.Name == "" {
		return invalidScenario("name", "required")
	}
	seen := make(map[string]string)
	check := func(leg string, insts []Instrument) error {
		for i, inst := range insts {
			field := fmt.Sprintf("%s[%d]", leg, i)
			if inst.Name == "" {
				return invalidScenario(field+".name", "required")
			}
			if prev, dup := seen[inst.Name]; dup {
				return invalidScenario(field+".name",
					fmt.Sprintf("instrument %q already listed in %s", inst.Name, prev))
			}
			seen[inst.Name] = leg
			for name, v := range map[string]float64{
				"mtm_value":  inst.MtMValue,
				"eq_linear":  inst.EqLinear,
				"eq_quad":    inst.EqQuad,
				"vol_linear": inst.VolLinear,
				"fx_linear":  inst.FXLinear,
				"ir_dv01":    inst.IRDV01,
			} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return invalidScenario(field+"."+name, "must be finite")
				}
			}
		}
		return nil
	}
	if err := check("exposure", s.Exposure); err != nil {
		return err
	}
	return check("hedge", s.Hedge)
}

// ValidateShock rejects non-finite shock components.
func ValidateShock(s ShockParams) error {
	for i, v := range s.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %w", ErrInvalidShock,
				ValidationError{Field: Factor(i).String() + "_shock_sigma", Message: "must be finite"})
		}
	}
	return nil
}

func symDense(c [][]float64) *mat.SymDense {
	data := make([]float64, 0, NumFactors*NumFactors)
	for i := 0; i < NumFactors; i++ {
		data = append(data, c[i][:NumFactors]...)
	}
	return mat.NewSymDense(NumFactors, data)
}
