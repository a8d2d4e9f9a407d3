package stress

// Greeks 순 민감도 (mtm 가중)
// DV01 은 이미 금액 단위이므로 mtm 을 곱하지 않는다
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	FX    float64 `json:"fx"`
	DV01  float64 `json:"dv01"`
}

func (g Greeks) add(o Greeks) Greeks {
	return Greeks{
		Delta: g.Delta + o.Delta,
		Gamma: g.Gamma + o.Gamma,
		Vega:  g.Vega + o.Vega,
		FX:    g.FX + o.FX,
		DV01:  g.DV01 + o.DV01,
	}
}

// GreeksBreakdown per-leg and net Greeks.
type GreeksBreakdown struct {
	Exposure Greeks `json:"exposure"`
	Hedge    Greeks `json:"hedge"`
	Net      Greeks `json:"net"`
}

// LegGreeks sums mtm-weighted sensitivities over one leg.
func LegGreeks(insts []Instrument) Greeks {
	var g Greeks
	for _, inst := range insts {
		g = g.add(Greeks{
			Delta: inst.MtMValue * inst.EqLinear,
			Gamma: inst.MtMValue * inst.EqQuad,
			Vega:  inst.MtMValue * inst.VolLinear,
			FX:    inst.MtMValue * inst.FXLinear,
			DV01:  inst.IRDV01,
		})
	}
	return g
}

// ComputeGreeks 레그별 + net Greeks
func ComputeGreeks(exposure, hedge []Instrument) GreeksBreakdown {
	e := LegGreeks(exposure)
	h := LegGreeks(hedge)
	return GreeksBreakdown{Exposure: e, Hedge: h, Net: e.add(h)}
}
