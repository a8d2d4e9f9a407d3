package scenariofile

import (
	"github.com/wonny/hedgestress/internal/stress"
)

// Book scenarios.yaml 루트
// ⭐ SSOT: 시나리오 북은 이 구조로만 읽는다 (KnownFields)
type Book struct {
	Stats     StatsSection      `yaml:"stats" json:"stats"`
	Targets   *TargetsSection   `yaml:"targets,omitempty" json:"targets,omitempty"`
	Scenarios []ScenarioSection `yaml:"scenarios" json:"scenarios"`
}

// StatsSection risk model block
type StatsSection struct {
	EqVol          float64     `yaml:"eq_vol" json:"eq_vol"`
	VolOfVol       float64     `yaml:"vol_of_vol" json:"vol_of_vol"`
	FXVol          float64     `yaml:"fx_vol" json:"fx_vol"`
	IRVol          float64     `yaml:"ir_vol" json:"ir_vol"`
	CorrNormal     [][]float64 `yaml:"corr_normal,omitempty" json:"corr_normal,omitempty"` // 참고용, 평가에는 위기 상관만 사용
	CorrCrisis     [][]float64 `yaml:"corr_crisis" json:"corr_crisis"`
	HorizonDays    int         `yaml:"horizon_days" json:"horizon_days"`
	MaxFactorSigma float64     `yaml:"max_factor_sigma" json:"max_factor_sigma"`
	MaxJointSigma  float64     `yaml:"max_joint_sigma" json:"max_joint_sigma"`
}

// TargetsSection scenario metrics targets (optional)
type TargetsSection struct {
	LossRatio  float64 `yaml:"loss_ratio" json:"loss_ratio"`
	JointSigma float64 `yaml:"joint_sigma" json:"joint_sigma"`
}

// ScenarioSection 시나리오 하나
type ScenarioSection struct {
	Name        string              `yaml:"name" json:"name"`
	Description string              `yaml:"description" json:"description"`
	Exposure    []InstrumentSection `yaml:"exposure" json:"exposure"`
	Hedge       []InstrumentSection `yaml:"hedge" json:"hedge"`
}

// InstrumentSection 상품 (mtm_value 필수, 민감도 생략 시 0)
type InstrumentSection struct {
	Name      string   `yaml:"name" json:"name"`
	MtMValue  *float64 `yaml:"mtm_value" json:"mtm_value"`
	EqLinear  float64  `yaml:"eq_linear" json:"eq_linear"`
	EqQuad    float64  `yaml:"eq_quad" json:"eq_quad"`
	VolLinear float64  `yaml:"vol_linear" json:"vol_linear"`
	FXLinear  float64  `yaml:"fx_linear" json:"fx_linear"`
	IRDV01    float64  `yaml:"ir_dv01" json:"ir_dv01"`
}

// RiskStats converts the stats block.
func (b *Book) RiskStats() stress.RiskStats {
	s := b.Stats
	return stress.RiskStats{
		EqVol:          s.EqVol,
		VolOfVol:       s.VolOfVol,
		FXVol:          s.FXVol,
		IRVol:          s.IRVol,
		CorrCrisis:     s.CorrCrisis,
		HorizonDays:    s.HorizonDays,
		MaxFactorSigma: s.MaxFactorSigma,
		MaxJointSigma:  s.MaxJointSigma,
	}
}

// MetricsTargets returns the book's targets, or fallback when the block is absent.
func (b *Book) MetricsTargets(fallback stress.MetricsTargets) stress.MetricsTargets {
	if b.Targets == nil {
		return fallback
	}
	return stress.MetricsTargets{LossRatio: b.Targets.LossRatio, JointSigma: b.Targets.JointSigma}
}

// ScenarioList converts every scenario in file order.
func (b *Book) ScenarioList() []stress.Scenario {
	out := make([]stress.Scenario, 0, len(b.Scenarios))
	for _, s := range b.Scenarios {
		out = append(out, s.toScenario())
	}
	return out
}

// Scenario looks up a scenario by name.
func (b *Book) Scenario(name string) (stress.Scenario, bool) {
	for _, s := range b.Scenarios {
		if s.Name == name {
			return s.toScenario(), true
		}
	}
	return stress.Scenario{}, false
}

func (s ScenarioSection) toScenario() stress.Scenario {
	return stress.Scenario{
		Name:        s.Name,
		Description: s.Description,
		Exposure:    toInstruments(s.Exposure),
		Hedge:       toInstruments(s.Hedge),
	}
}

func toInstruments(in []InstrumentSection) []stress.Instrument {
	out := make([]stress.Instrument, 0, len(in))
	for _, i := range in {
		var mtm float64
		if i.MtMValue != nil {
			mtm = *i.MtMValue
		}
		out = append(out, stress.Instrument{
			Name:      i.Name,
			MtMValue:  mtm,
			EqLinear:  i.EqLinear,
			EqQuad:    i.EqQuad,
			VolLinear: i.VolLinear,
			FXLinear:  i.FXLinear,
			IRDV01:    i.IRDV01,
		})
	}
	return out
}
