package stress

// =============================================================================
// P&L Attribution (Taylor expansion)
// =============================================================================

// InstrumentPnLFor 단일 상품 손익
//
//	equity = mtm × (eqLin·Δeq + ½·eqQuad·Δeq²)
//	vol    = mtm × volLin × Δvol
//	fx     = mtm × fxLin × Δfx
//	rates  = dv01 × Δy × 10000
func InstrumentPnLFor(inst Instrument, moves FactorMoves) PnL {
	eq := inst.MtMValue * (inst.EqLinear*moves.EqMove + 0.5*inst.EqQuad*moves.EqMove*moves.EqMove)
	vol := inst.MtMValue * inst.VolLinear * moves.VolMove
	fx := inst.MtMValue * inst.FXLinear * moves.FXMove
	rates := inst.IRDV01 * moves.IRMove * bpPerUnit

	return PnL{
		Total:  eq + vol + fx + rates,
		Equity: eq,
		Vol:    vol,
		FX:     fx,
		Rates:  rates,
	}
}

// legPnL sums one leg and keeps the per-instrument results in input order.
func legPnL(insts []Instrument, moves FactorMoves) (PnL, []InstrumentPnL) {
	var total PnL
	per := make([]InstrumentPnL, 0, len(insts))
	for _, inst := range insts {
		p := InstrumentPnLFor(inst, moves)
		total = total.Add(p)
		per = append(per, InstrumentPnL{Name: inst.Name, PnL: p})
	}
	return total, per
}

// netTotal net P&L total only (최적화 목적함수용, 할당 없음)
func netTotal(insts []Instrument, moves FactorMoves) float64 {
	var total float64
	for _, inst := range insts {
		total += InstrumentPnLFor(inst, moves).Total
	}
	return total
}

// CalculatePortfolioPnL 레그별 집계 후 net = exposure + hedge
// 빈 레그는 0 손익, exposure notional 이 0 이면 LossRatio = 0
func CalculatePortfolioPnL(exposure, hedge []Instrument, moves FactorMoves) PnLBreakdown {
	expPnL, expPer := legPnL(exposure, moves)
	hedgePnL, hedgePer := legPnL(hedge, moves)
	net := expPnL.Add(hedgePnL)

	notional := ExposureNotional(exposure)
	var loss, lossRatio float64
	if net.Total < 0 {
		loss = -net.Total
	}
	if notional > 0 {
		lossRatio = -net.Total / notional
	}

	return PnLBreakdown{
		Net:          net,
		Exposure:     expPnL,
		Hedge:        hedgePnL,
		ExposurePnLs: expPer,
		HedgePnLs:    hedgePer,
		Loss:         loss,
		Notional:     notional,
		LossRatio:    lossRatio,
	}
}
