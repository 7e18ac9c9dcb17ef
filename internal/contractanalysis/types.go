package contractanalysis

import "time"

const Disclaimer = "This is an automated structural analysis, not legal advice. " +
	"It does not guarantee a legally correct or complete reading of the contract. " +
	"Consult qualified counsel before acting on any finding."

const (
	// ClassifierConfidenceFloor is inclusive: a score exactly at the floor
	// is accepted.
	ClassifierConfidenceFloor = 0.3

	MaxRawTextChars = 200000
	MinSegmentChars = 20
	// MaxSegmentChars bounds what a single classifier/summarizer call sees.
	// Longer spans are sub-split on sentence boundaries.
	MaxSegmentChars = 2000

	ClauseSummaryMaxWords   = 60
	DocumentSummaryMaxWords = 150

	DefaultSegmentConcurrency = 4
)

type ClauseType string

const (
	ClauseTermination       ClauseType = "Termination"
	ClauseConfidentiality   ClauseType = "Confidentiality"
	ClauseLiability         ClauseType = "Liability"
	ClauseIndemnification   ClauseType = "Indemnification"
	ClausePayment           ClauseType = "Payment"
	ClauseGoverningLaw      ClauseType = "Governing Law"
	ClauseDisputeResolution ClauseType = "Dispute Resolution"
	ClauseForceMajeure      ClauseType = "Force Majeure"
	ClauseAssignment        ClauseType = "Assignment"
	ClauseAmendments        ClauseType = "Amendments"
	ClauseNotices           ClauseType = "Notices"
	ClauseSeverability      ClauseType = "Severability"
	ClauseEntireAgreement   ClauseType = "Entire Agreement"
	ClauseWaiver            ClauseType = "Waiver"
	ClauseSurvival          ClauseType = "Survival"
	ClauseOther             ClauseType = "Other"
)

// ClauseTaxonomy is the candidate label set handed to the zero-shot
// classifier. "Other" is not a candidate; it is the below-floor tag.
var ClauseTaxonomy = []ClauseType{
	ClauseTermination,
	ClauseConfidentiality,
	ClauseLiability,
	ClauseIndemnification,
	ClausePayment,
	ClauseGoverningLaw,
	ClauseDisputeResolution,
	ClauseForceMajeure,
	ClauseAssignment,
	ClauseAmendments,
	ClauseNotices,
	ClauseSeverability,
	ClauseEntireAgreement,
	ClauseWaiver,
	ClauseSurvival,
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type RiskCategory string

const (
	RiskAutoRenewal           RiskCategory = "auto_renewal"
	RiskPenaltyFee            RiskCategory = "penalty_fee"
	RiskUnlimitedLiability    RiskCategory = "unlimited_liability"
	RiskDataOwnership         RiskCategory = "data_ownership"
	RiskTerminationPenalty    RiskCategory = "termination_penalty"
	RiskExclusiveTerms        RiskCategory = "exclusive_terms"
	RiskUnilateralChanges     RiskCategory = "unilateral_changes"
	RiskConfidentialityBreach RiskCategory = "confidentiality_breach"
	RiskJurisdiction          RiskCategory = "jurisdiction"
	RiskMandatoryArbitration  RiskCategory = "mandatory_arbitration"
)

// severityTable is the static category→severity mapping. Severity is never
// computed dynamically so that two runs over the same text agree.
var severityTable = map[RiskCategory]Severity{
	RiskAutoRenewal:           SeverityHigh,
	RiskUnlimitedLiability:    SeverityHigh,
	RiskUnilateralChanges:     SeverityHigh,
	RiskPenaltyFee:            SeverityMedium,
	RiskDataOwnership:         SeverityMedium,
	RiskTerminationPenalty:    SeverityMedium,
	RiskExclusiveTerms:        SeverityMedium,
	RiskConfidentialityBreach: SeverityMedium,
	RiskJurisdiction:          SeverityLow,
	RiskMandatoryArbitration:  SeverityLow,
}

// SeverityFor returns the fixed severity for a risk category.
func SeverityFor(category RiskCategory) Severity {
	if s, ok := severityTable[category]; ok {
		return s
	}
	return SeverityLow
}

// ClauseSegment is a contiguous span of normalized text treated as one unit.
// Offsets index into the normalized text.
type ClauseSegment struct {
	Index       int    `json:"index"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Text        string `json:"text"`
}

type ClauseRecord struct {
	SegmentIndex int        `json:"segment_index"`
	Type         ClauseType `json:"type"`
	Summary      string     `json:"summary"`
	Confidence   float64    `json:"confidence"`
}

type RiskRecord struct {
	SegmentIndex int          `json:"segment_index"`
	Category     RiskCategory `json:"category"`
	Severity     Severity     `json:"severity"`
	Text         string       `json:"text"`
	Confidence   float64      `json:"confidence"`
}

type RiskExplanation struct {
	RiskID                string   `json:"risk_id"`
	Severity              Severity `json:"severity"`
	Explanation           string   `json:"explanation"`
	MitigationSuggestions []string `json:"mitigation_suggestions"`
}

type ComplianceCheck struct {
	Assessment      string  `json:"assessment"`
	ComplianceScore float64 `json:"compliance_score"`
}

type LLMInsights struct {
	LegalInsights    string            `json:"legal_insights"`
	Recommendations  []string          `json:"recommendations"`
	RiskExplanations []RiskExplanation `json:"risk_explanations"`
	ComplianceCheck  ComplianceCheck   `json:"compliance_check"`
}

type RiskSummary struct {
	TotalRisks       int                  `json:"total_risks"`
	HighRisks        int                  `json:"high_risks"`
	MediumRisks      int                  `json:"medium_risks"`
	LowRisks         int                  `json:"low_risks"`
	Categories       map[RiskCategory]int `json:"categories"`
	OverallRiskLevel Severity             `json:"overall_risk_level"`
}

type ClauseStats struct {
	TypeDistribution map[ClauseType]int `json:"type_distribution"`
	MostCommonType   ClauseType         `json:"most_common_type,omitempty"`
}

type AnalysisMetadata struct {
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at"`
	SegmentCount     int       `json:"segment_count"`
	InputTruncated   bool      `json:"input_truncated"`
	EmptyInput       bool      `json:"empty_input,omitempty"`
	LLMSkippedReason string    `json:"llm_skipped_reason,omitempty"`
}

type AnalysisResult struct {
	Filename       string           `json:"filename"`
	OverallSummary string           `json:"overall_summary"`
	Clauses        []ClauseRecord   `json:"clauses"`
	Risks          []RiskRecord     `json:"risks"`
	LLMAnalysis    *LLMInsights     `json:"llm_analysis,omitempty"`
	TotalClauses   int              `json:"total_clauses"`
	RiskCount      int              `json:"risk_count"`
	RiskSummary    RiskSummary      `json:"risk_summary"`
	ClauseStats    ClauseStats      `json:"clause_stats"`
	Metadata       AnalysisMetadata `json:"metadata"`
	Disclaimer     string           `json:"disclaimer"`
}

type Options struct {
	EnableLLM bool `json:"enable_llm"`
}
