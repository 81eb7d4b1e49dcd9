package corrections

import "time"

// Unit is a single correctable piece of text together with the
// information the provider needs to judge it: the correction category
// and a window of surrounding document text.
type Unit struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Context  string `json:"context,omitempty"`
}

// Correction is a proposed replacement for a unit's text.
type Correction struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Verdict is a user's judgment on a proposed correction.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

// Valid reports whether v is one of the two recognized verdicts.
func (v Verdict) Valid() bool {
	return v == VerdictAccepted || v == VerdictRejected
}

// FeedbackRecord is one append-only entry in the feedback ledger.
// Records are never mutated or individually deleted; the ledger is the
// source of truth for all consensus computation.
type FeedbackRecord struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Verdict     Verdict   `json:"verdict"`
	DocumentID  string    `json:"document_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConsensusStats is a materialized view over the ledger for one
// fingerprint. It is recomputable at any time and never persisted as
// ground truth.
type ConsensusStats struct {
	Fingerprint string    `json:"fingerprint"`
	Accepted    int       `json:"accepted"`
	Rejected    int       `json:"rejected"`
	LastUpdated time.Time `json:"last_updated"`
}

// Total returns the sample size behind the stats.
func (s ConsensusStats) Total() int {
	return s.Accepted + s.Rejected
}

// Ratio returns the accepted fraction, or 0 when no feedback exists.
func (s ConsensusStats) Ratio() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(total)
}

// LearnedState tracks the lifecycle of a learned correction.
type LearnedState string

const (
	// StateLearned means the correction is served without consulting
	// the provider.
	StateLearned LearnedState = "learned"
	// StateContested means feedback is split but has not dropped below
	// the demotion floor.
	StateContested LearnedState = "contested"
	// StateRetracted means enough users rejected the correction that it
	// is no longer served.
	StateRetracted LearnedState = "retracted"
)

// LearnedEntry is a correction promoted by consensus. Entries are
// created and mutated only by the consensus engine; the request path
// reads them and every other component keeps its hands off.
type LearnedEntry struct {
	Fingerprint string       `json:"fingerprint"`
	Original    string       `json:"original"`
	Corrected   string       `json:"corrected"`
	Ratio       float64      `json:"ratio"`
	SampleSize  int          `json:"sample_size"`
	State       LearnedState `json:"state"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Active reports whether the entry should be served on the read path.
func (e LearnedEntry) Active() bool {
	return e.State == StateLearned
}
