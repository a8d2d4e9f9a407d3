package stress

// =============================================================================
// Factor Convention
// =============================================================================

// Factor 리스크 팩터 인덱스
// ⭐ SSOT: 팩터 순서는 equity, vol, fx, rates 로 고정 (상관행렬 행/열 순서와 동일)
type Factor int

const (
	FactorEquity Factor = iota
	FactorVol
	FactorFX
	FactorRates
)

// NumFactors 팩터 개수
const NumFactors = 4

// bpPerUnit converts a decimal yield change into basis points.
const bpPerUnit = 10_000.0

var factorNames = [NumFactors]string{"equity", "vol", "fx", "rates"}

// String returns the factor's canonical name.
func (f Factor) String() string {
	if f < 0 || int(f) >= NumFactors {
		return "unknown"
	}
	return factorNames[f]
}

// =============================================================================
// Portfolio Types
// =============================================================================

// Instrument 단일 익스포저/헤지 상품
// 민감도는 mtm 로 스케일된 1σ 이동당 P&L 비율, IRDV01 은 1bp 당 절대 금액
type Instrument struct {
	Name      string  `json:"name" yaml:"name"`
	MtMValue  float64 `json:"mtm_value" yaml:"mtm_value"`   // 평가금액 (부호 포함, long > 0)
	EqLinear  float64 `json:"eq_linear" yaml:"eq_linear"`   // equity delta
	EqQuad    float64 `json:"eq_quad" yaml:"eq_quad"`       // equity convexity (gamma)
	VolLinear float64 `json:"vol_linear" yaml:"vol_linear"` // vega
	FXLinear  float64 `json:"fx_linear" yaml:"fx_linear"`   // FX delta
	IRDV01    float64 `json:"ir_dv01" yaml:"ir_dv01"`       // currency per +1bp
}

// Scenario 헤지 포트폴리오 시나리오
// Exposure 와 Hedge 는 서로 겹치지 않는다. net 포트폴리오 = 두 레그의 합집합
type Scenario struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Exposure    []Instrument `json:"exposure"`
	Hedge       []Instrument `json:"hedge"`
}

// Instruments returns the net portfolio (exposure followed by hedge).
func (s Scenario) Instruments() []Instrument {
	out := make([]Instrument, 0, len(s.Exposure)+len(s.Hedge))
	out = append(out, s.Exposure...)
	return append(out, s.Hedge...)
}

// ExposureNotional Σ|mtm| over the exposure leg only.
// 헤지 notional 은 분모에서 제외
func ExposureNotional(exposure []Instrument) float64 {
	var total float64
	for _, inst := range exposure {
		if inst.MtMValue < 0 {
			total -= inst.MtMValue
		} else {
			total += inst.MtMValue
		}
	}
	return total
}

// =============================================================================
// Risk Model
// =============================================================================

// RiskStats 일간 1σ 변동성 + 위기 상관행렬 + 시나리오 한도
type RiskStats struct {
	EqVol          float64     `json:"eq_vol"`           // daily equity 1σ (decimal)
	VolOfVol       float64     `json:"vol_of_vol"`       // daily vol-of-vol 1σ
	FXVol          float64     `json:"fx_vol"`           // daily FX 1σ
	IRVol          float64     `json:"ir_vol"`           // daily yield 1σ (decimal yield units)
	CorrCrisis     [][]float64 `json:"corr_crisis"`      // 4x4, order: equity, vol, fx, rates
	HorizonDays    int         `json:"horizon_days"`     // √T scaling horizon
	MaxFactorSigma float64     `json:"max_factor_sigma"` // per-factor box bound
	MaxJointSigma  float64     `json:"max_joint_sigma"`  // Mahalanobis radius bound
}

// Vols returns the daily volatilities in factor order.
func (s RiskStats) Vols() [NumFactors]float64 {
	return [NumFactors]float64{s.EqVol, s.VolOfVol, s.FXVol, s.IRVol}
}

// =============================================================================
// Shock / Moves
// =============================================================================

// ShockParams 팩터별 충격 (σ 단위, 부호 포함)
// JointSigma 는 최적화 이후에만 채워진다
type ShockParams struct {
	EqShockSigma  float64 `json:"eq_shock_sigma"`
	VolShockSigma float64 `json:"vol_shock_sigma"`
	FXShockSigma  float64 `json:"fx_shock_sigma"`
	IRShockSigma  float64 `json:"ir_shock_sigma"`
	JointSigma    float64 `json:"joint_sigma"`
}

// Vector returns the shock in factor order.
func (s ShockParams) Vector() [NumFactors]float64 {
	return [NumFactors]float64{s.EqShockSigma, s.VolShockSigma, s.FXShockSigma, s.IRShockSigma}
}

// ShockFromVector builds a ShockParams from a factor-ordered vector.
// JointSigma is left at zero.
func ShockFromVector(x []float64) ShockParams {
	var v [NumFactors]float64
	copy(v[:], x)
	return ShockParams{
		EqShockSigma:  v[FactorEquity],
		VolShockSigma: v[FactorVol],
		FXShockSigma:  v[FactorFX],
		IRShockSigma:  v[FactorRates],
	}
}

// SeverityMode joint severity 계산 방식
type SeverityMode string

const (
	// SeverityMahalanobis sqrt(xᵀ C⁻¹ x) under the crisis correlation
	SeverityMahalanobis SeverityMode = "mahalanobis"
	// SeverityEuclideanFallback ‖x‖₂, used only when the correlation matrix cannot be inverted
	SeverityEuclideanFallback SeverityMode = "euclidean_fallback"
)

// FactorMoves 절대 팩터 이동 (decimal) + joint severity
type FactorMoves struct {
	EqMove       float64      `json:"eq_move"`  // equity return
	VolMove      float64      `json:"vol_move"` // vol-point change
	FXMove       float64      `json:"fx_move"`  // FX return
	IRMove       float64      `json:"ir_move"`  // yield change
	JointSigma   float64      `json:"joint_sigma"`
	SeverityMode SeverityMode `json:"severity_mode"`
}

// Degraded reports whether severity was computed with the Euclidean fallback.
func (m FactorMoves) Degraded() bool {
	return m.SeverityMode == SeverityEuclideanFallback
}

// =============================================================================
// P&L Types
// =============================================================================

// PnL 팩터별 손익
type PnL struct {
	Total  float64 `json:"total"`
	Equity float64 `json:"equity"`
	Vol    float64 `json:"vol"`
	FX     float64 `json:"fx"`
	Rates  float64 `json:"rates"`
}

// Add returns the componentwise sum of two PnLs.
func (p PnL) Add(o PnL) PnL {
	return PnL{
		Total:  p.Total + o.Total,
		Equity: p.Equity + o.Equity,
		Vol:    p.Vol + o.Vol,
		FX:     p.FX + o.FX,
		Rates:  p.Rates + o.Rates,
	}
}

// InstrumentPnL 상품별 손익 (리포팅용으로 보존)
type InstrumentPnL struct {
	Name string `json:"name"`
	PnL  PnL    `json:"pnl"`
}

// PnLBreakdown 레그별 / 상품별 손익 집계
// ⭐ SSOT: Loss 는 양수 (max(0, -net.total)), LossRatio 분모는 exposure notional
type PnLBreakdown struct {
	Net          PnL             `json:"net"`
	Exposure     PnL             `json:"exposure"`
	Hedge        PnL             `json:"hedge"`
	ExposurePnLs []InstrumentPnL `json:"exposure_pnls"`
	HedgePnLs    []InstrumentPnL `json:"hedge_pnls"`
	Loss         float64         `json:"loss"`
	Notional     float64         `json:"notional"`
	LossRatio    float64         `json:"loss_ratio"`
}
