// Package rubric defines the evaluation methodology as versioned, swappable
// data: blocks of criteria, the score scale and the composite→grade
// thresholds. The aggregation engine is written against this shape only, so
// methodology changes ship as a new Rubric value, not as new code.
package rubric

type (
	// Criterion is a single scored question within a block.
	Criterion struct {
		Code   string `json:"code"`
		Prompt string `json:"prompt"`
		Hint   string `json:"hint,omitempty"`
	}

	// Block is a named group of related criteria. Every block weighs equally
	// in the composite score regardless of how many criteria it contains.
	Block struct {
		ID          string      `json:"id"`
		Code        string      `json:"code"`
		Name        string      `json:"name"`
		Description string      `json:"description,omitempty"`
		Criteria    []Criterion `json:"criteria"`
	}

	// GradeThreshold maps a composite score range to a categorical grade.
	// Min is the inclusive lower bound; the mapping is total: any composite
	// below the second tier's Min falls into the first (lowest) tier.
	GradeThreshold struct {
		Grade       string  `json:"grade"`
		Name        string  `json:"name"`
		Min         float64 `json:"min"`
		Description string  `json:"description,omitempty"`
	}

	Rubric struct {
		Version    int              `json:"version"`
		MaxScore   int              `json:"max_score"` // valid scores are 1..MaxScore
		Blocks     []Block          `json:"blocks"`
		Thresholds []GradeThreshold `json:"thresholds"` // ascending by Min
	}
)

// Default is the canonical rubric (version 1): the Head grading system.
// Four blocks with one criterion each on a 3-point scale; the composite
// (sum of block averages) ranges 4-12 when every block is scored.
// Head C = 4-6, Head B = 7-9, Head A = 10-12.
var Default = Rubric{
	Version:  1,
	MaxScore: 3,
	Blocks: []Block{
		{
			ID:          "delivery",
			Code:        "D",
			Name:        "Delivery & Performance",
			Description: "How consistently the person hits or exceeds the KPIs of the role.",
			Criteria: []Criterion{
				{
					Code:   "D",
					Prompt: "Delivery & Performance",
					Hint:   "Does this executive consistently reach and exceed the KPIs of the role? Is there systematic overperformance, or are results unstable?",
				},
			},
		},
		{
			ID:          "ownership",
			Code:        "O",
			Name:        "Ownership & Proactivity",
			Description: "Do they react to incoming work, or shape the agenda and solve problems unprompted?",
			Criteria: []Criterion{
				{
					Code:   "O",
					Prompt: "Ownership & Proactivity",
					Hint:   "Does this executive shape the agenda, spot and solve problems proactively, or mostly react to external requests and wait for direction?",
				},
			},
		},
		{
			ID:          "crossfunc",
			Code:        "X",
			Name:        "Cross-functional Impact",
			Description: "Do their decisions improve only their own patch, or genuinely help other functions and the whole business?",
			Criteria: []Criterion{
				{
					Code:   "X",
					Prompt: "Cross-functional Impact",
					Hint:   "Does this executive's influence extend beyond their function? Do their decisions and initiatives improve the work of other teams and the business as a whole?",
				},
			},
		},
		{
			ID:          "leadership",
			Code:        "L",
			Name:        "People & System Leadership",
			Description: "How they build team, process and culture in their area.",
			Criteria: []Criterion{
				{
					Code:   "L",
					Prompt: "People & System Leadership",
					Hint:   "How does this executive build team, process and culture? Is there a durable system, or does everything hang on their personal involvement? Do they grow people?",
				},
			},
		},
	},
	Thresholds: []GradeThreshold{
		{
			Grade:       "C",
			Name:        "Head C",
			Min:         0,
			Description: "Works, but: either fresh in the role, unstable, strongly dependent on others, or not yet operating at a systemic level.",
		},
		{
			Grade:       "B",
			Name:        "Head B",
			Min:         7,
			Description: "Reliable, steady Head: hits KPIs, holds their area, collaborates with others; team and process are fine.",
		},
		{
			Grade:       "A",
			Name:        "Head A",
			Min:         10,
			Description: "Strong driver: systematically exceeds expectations, creates value beyond their area, grows people and process, influences strategy.",
		},
	},
}

// Criterion looks a criterion up by code.
func (r Rubric) Criterion(code string) (Criterion, bool) {
	for _, b := range r.Blocks {
		for _, c := range b.Criteria {
			if c.Code == code {
				return c, true
			}
		}
	}
	return Criterion{}, false
}

// Criteria returns all criteria in block order.
func (r Rubric) Criteria() []Criterion {
	var all []Criterion
	for _, b := range r.Blocks {
		all = append(all, b.Criteria...)
	}
	return all
}

// ValidScore reports whether a submitted score lies on the rubric's scale.
// Zero means "not rated" and is handled upstream, never stored as a score.
func (r Rubric) ValidScore(score int) bool {
	return score >= 1 && score <= r.MaxScore
}

// GradeFor maps a composite score to a grade. Threshold lower bounds are
// inclusive and the lowest tier catches everything below the second tier.
func (r Rubric) GradeFor(composite float64) GradeThreshold {
	for i := len(r.Thresholds) - 1; i > 0; i-- {
		if composite >= r.Thresholds[i].Min {
			return r.Thresholds[i]
		}
	}
	return r.Thresholds[0]
}
