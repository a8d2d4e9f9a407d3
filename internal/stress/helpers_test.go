package stress

func identityCorr() [][]float64 {
	c := make([][]float64, NumFactors)
	for i := range c {
		c[i] = make([]float64, NumFactors)
		c[i][i] = 1
	}
	return c
}

func crisisCorr() [][]float64 {
	return [][]float64{
		{1.0, 0.6, -0.3, 0.2},
		{0.6, 1.0, -0.2, 0.1},
		{-0.3, -0.2, 1.0, 0.0},
		{0.2, 0.1, 0.0, 1.0},
	}
}

// equityOnlyStats risk model of the single long-equity example
func equityOnlyStats(maxJoint float64) RiskStats {
	return RiskStats{
		EqVol:          0.012,
		VolOfVol:       0.05,
		FXVol:          0.006,
		IRVol:          0.0007,
		CorrCrisis:     identityCorr(),
		HorizonDays:    5,
		MaxFactorSigma: 10,
		MaxJointSigma:  maxJoint,
	}
}

func crisisStats() RiskStats {
	return RiskStats{
		EqVol:          0.015,
		VolOfVol:       0.04,
		FXVol:          0.007,
		IRVol:          0.0008,
		CorrCrisis:     crisisCorr(),
		HorizonDays:    10,
		MaxFactorSigma: 6,
		MaxJointSigma:  5,
	}
}

func longEquityScenario() Scenario {
	return Scenario{
		Name: "long_equity",
		Exposure: []Instrument{
			{Name: "equity_book", MtMValue: 100_000_000_000, EqLinear: 1.0},
		},
	}
}

// hedgedScenario equity + FX + rates exposure partially hedged with puts and futures
func hedgedScenario() Scenario {
	return Scenario{
		Name: "hedged_book",
		Exposure: []Instrument{
			{Name: "global_equity", MtMValue: 50_000_000_000, EqLinear: 1.0, FXLinear: 0.4},
			{Name: "govt_bonds", MtMValue: 30_000_000_000, IRDV01: -15_000_000},
		},
		Hedge: []Instrument{
			{Name: "index_puts", MtMValue: 1_500_000_000, EqLinear: -8.0, EqQuad: 40.0, VolLinear: 3.0},
			{Name: "fx_forward", MtMValue: -10_000_000_000, FXLinear: 1.0},
		},
	}
}
