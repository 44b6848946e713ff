package model

// Phase is the categorical market phase of a zone.
type Phase string

const (
	PhaseAccumulation Phase = "accumulation"
	PhaseMarkup       Phase = "markup"
	PhaseDistribution Phase = "distribution"
	PhaseMarkdown     Phase = "markdown"
	PhaseNeutral      Phase = "neutral"
)

// PhaseZone marks a time range [From, To] (epoch ms) with a phase.
// Zones are non-overlapping and time-ordered.
type PhaseZone struct {
	From  int64 `json:"from"`
	To    int64 `json:"to"`
	Phase Phase `json:"phase"`
}

// NormalizeZones drops inverted zones and clips overlaps so that each zone
// starts no earlier than the previous one ends. Input order is preserved.
func NormalizeZones(zones []PhaseZone) []PhaseZone {
	out := make([]PhaseZone, 0, len(zones))
	var lastTo int64
	for i, z := range zones {
		if z.To <= z.From {
			continue
		}
		if i > 0 && len(out) > 0 && z.From < lastTo {
			z.From = lastTo
			if z.To <= z.From {
				continue
			}
		}
		out = append(out, z)
		lastTo = z.To
	}
	return out
}
