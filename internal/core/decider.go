package core

// DeciderConfig holds the tunables for the OCR decision. The coverage
// threshold in particular is a policy knob, not a contract: observed
// deployments have run it anywhere from 0.05 to 0.12.
type DeciderConfig struct {
	CoverageThreshold float64
	GarbledThreshold  float64
	MinSampleLength   int
	MinValidWordRatio float64
}

func DefaultDeciderConfig() DeciderConfig {
	return DeciderConfig{
		CoverageThreshold: 0.05,
		GarbledThreshold:  0.2,
		MinSampleLength:   100,
		MinValidWordRatio: 0.5,
	}
}

// ExtractionSignals are the probe outputs feeding the OCR decision.
type ExtractionSignals struct {
	Coverage       float64
	GarbledRatio   float64
	ValidWordRatio float64
	SampleLength   int
	PageCount      int

	// HasDictionary is false when no reference word list was loaded, which
	// disables the valid-word signal rather than forcing OCR on every file.
	HasDictionary bool
}

// ShouldUseOcr routes the document to OCR when any single signal trips its
// threshold.
func ShouldUseOcr(cfg DeciderConfig, signals ExtractionSignals) bool {
	if signals.Coverage < cfg.CoverageThreshold {
		return true
	}
	if signals.GarbledRatio > cfg.GarbledThreshold {
		return true
	}
	if signals.SampleLength < cfg.MinSampleLength && signals.PageCount > 0 {
		return true
	}
	if signals.HasDictionary && signals.ValidWordRatio < cfg.MinValidWordRatio {
		return true
	}
	return false
}
