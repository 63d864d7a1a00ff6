package caption

import "sort"

// evaluateSafety compares category severities with their thresholds.
// Categories without a configured threshold use defaultSafetyThreshold.
func evaluateSafety(categories []CategorySeverity, thresholds map[string]int) SafetyReport {
	report := SafetyReport{Safe: true, Details: make(map[string]SafetyDetail, len(categories))}
	for _, c := range categories {
		threshold, ok := thresholds[c.Category]
		if !ok {
			threshold = defaultSafetyThreshold
		}
		detail := SafetyDetail{
			Severity:  c.Severity,
			Threshold: threshold,
			Level:     severityLevel(c.Severity),
			Flagged:   c.Severity >= threshold,
		}
		report.Details[c.Category] = detail
		if detail.Flagged {
			report.Safe = false
			report.Flags = append(report.Flags, SafetyFlag{Category: c.Category, Severity: c.Severity, Level: detail.Level})
		}
	}
	sort.SliceStable(report.Flags, func(i, j int) bool { return report.Flags[i].Severity > report.Flags[j].Severity })
	return report
}

func severityLevel(severity int) string {
	switch {
	case severity <= 0:
		return "safe"
	case severity <= 2:
		return "low"
	case severity <= 4:
		return "medium"
	default:
		return "high"
	}
}
