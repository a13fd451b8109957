package risk

// Score thresholds.
const (
	CriticalScore = 6
	HighScore     = 4
	ModerateScore = 2
)

// Score accumulates risk points for a water level and factors.
func Score(waterLevel float64, f Factors) int {
	score := 1
	switch {
	case waterLevel > 3.5:
		score = 3
	case waterLevel > 2.5:
		score = 2
	}

	score += points(f.MonsoonIntensity)
	score += points(f.RiverProximity)
	if f.SeasonalRisk == LevelHigh {
		score++
	}
	return score
}

func points(l Level) int {
	switch l {
	case LevelHigh:
		return 2
	case LevelModerate:
		return 1
	default:
		return 0
	}
}

// Classify maps a score to its classification. Boundary scores take the higher class.
func Classify(score int) Classification {
	switch {
	case score >= CriticalScore:
		return ClassificationCritical
	case score >= HighScore:
		return ClassificationHigh
	case score >= ModerateScore:
		return ClassificationModerate
	default:
		return ClassificationLow
	}
}

// Assess scores a water level against factors.
func Assess(w WaterLevel, f Factors) Assessment {
	score := Score(w.Meters, f)
	classification := Classify(score)
	return Assessment{
		Factors:        f,
		WaterLevel:     w,
		Score:          score,
		Classification: classification,
		Color:          classification.Color(),
	}
}
