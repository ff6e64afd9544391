package models

import (
	"strings"
	"time"
)

// EntityType is the closed enumeration of extracted entity kinds.
type EntityType string

const (
	EntityPerson         EntityType = "PERSON"
	EntityOrganization   EntityType = "ORGANIZATION"
	EntityLocation       EntityType = "LOCATION"
	EntityDate           EntityType = "DATE"
	EntityMoney          EntityType = "MONEY"
	EntityEmail          EntityType = "EMAIL"
	EntityPhone          EntityType = "PHONE"
	EntityAddress        EntityType = "ADDRESS"
	EntityContractNumber EntityType = "CONTRACT_NUMBER"
	EntityNAICSCode      EntityType = "NAICS_CODE"
	EntityCertification  EntityType = "CERTIFICATION"
	EntityDeadline       EntityType = "DEADLINE"
	EntityRequirement    EntityType = "REQUIREMENT"
	EntityMisc           EntityType = "MISC"
)

var entityTypeByRaw = map[string]EntityType{
	"person":          EntityPerson,
	"organization":    EntityOrganization,
	"location":        EntityLocation,
	"date":            EntityDate,
	"money":           EntityMoney,
	"email":           EntityEmail,
	"phone":           EntityPhone,
	"address":         EntityAddress,
	"contract_number": EntityContractNumber,
	"naics_code":      EntityNAICSCode,
	"certification":   EntityCertification,
	"deadline":        EntityDeadline,
	"requirement":     EntityRequirement,
	"misc":            EntityMisc,
}

// MapEntityType converts a raw analyzer type string to the closed enum.
// Anything unrecognized maps to MISC.
func MapEntityType(raw string) EntityType {
	if t, ok := entityTypeByRaw[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return EntityMisc
}

// Entity is one named entity extracted from the document text.
type Entity struct {
	Text       string     `firestore:"text" json:"text"`
	Type       EntityType `firestore:"type" json:"type"`
	Confidence float64    `firestore:"confidence,omitempty" json:"confidence,omitempty"`
	Context    string     `firestore:"context,omitempty" json:"context,omitempty"`
}

// StructureResult is the section-structuring stage output.
type StructureResult struct {
	Sections       []Section `firestore:"sections,omitempty" json:"sections,omitempty"`
	SectionCount   int       `firestore:"sectionCount" json:"sectionCount"`
	WordCount      int       `firestore:"wordCount" json:"wordCount"`
	CharacterCount int       `firestore:"characterCount" json:"characterCount"`
}

// ContractDetails is the contract-metadata extraction stage output.
type ContractDetails struct {
	Title              string   `firestore:"title,omitempty" json:"title,omitempty"`
	Agency             string   `firestore:"agency,omitempty" json:"agency,omitempty"`
	ContractNumber     string   `firestore:"contractNumber,omitempty" json:"contractNumber,omitempty"`
	NAICSCodes         []string `firestore:"naicsCodes,omitempty" json:"naicsCodes,omitempty"`
	Deadline           string   `firestore:"deadline,omitempty" json:"deadline,omitempty"`
	EstimatedValue     string   `firestore:"estimatedValue,omitempty" json:"estimatedValue,omitempty"`
	SetAside           string   `firestore:"setAside,omitempty" json:"setAside,omitempty"`
	PlaceOfPerformance string   `firestore:"placeOfPerformance,omitempty" json:"placeOfPerformance,omitempty"`
}

// ContentInsights is the content-analysis stage output.
type ContentInsights struct {
	Summary      string   `firestore:"summary,omitempty" json:"summary,omitempty"`
	KeyPoints    []string `firestore:"keyPoints,omitempty" json:"keyPoints,omitempty"`
	Sentiment    string   `firestore:"sentiment,omitempty" json:"sentiment,omitempty"`
	QualityScore int      `firestore:"qualityScore" json:"qualityScore"`
}

// SecurityRisk is one finding from the security classification stage.
type SecurityRisk struct {
	Severity    string `firestore:"severity" json:"severity"`
	Description string `firestore:"description" json:"description"`
}

// SecurityAssessment is the security classification stage output.
// Classification defaults to UNCLASSIFIED when the stage fails.
type SecurityAssessment struct {
	Classification       string         `firestore:"classification" json:"classification"`
	ConfidenceScore      int            `firestore:"confidenceScore,omitempty" json:"confidenceScore,omitempty"`
	Risks                []SecurityRisk `firestore:"risks,omitempty" json:"risks,omitempty"`
	HandlingInstructions []string       `firestore:"handlingInstructions,omitempty" json:"handlingInstructions,omitempty"`
}

// ContractAnalysis is the requirements/risks/opportunities stage output.
type ContractAnalysis struct {
	Requirements  []string `firestore:"requirements,omitempty" json:"requirements,omitempty"`
	Risks         []string `firestore:"risks,omitempty" json:"risks,omitempty"`
	Opportunities []string `firestore:"opportunities,omitempty" json:"opportunities,omitempty"`
}

// QualityReport is the quality-scoring stage output.
type QualityReport struct {
	Score           int      `firestore:"score" json:"score"`
	Issues          []string `firestore:"issues,omitempty" json:"issues,omitempty"`
	Recommendations []string `firestore:"recommendations,omitempty" json:"recommendations,omitempty"`
}

// AnalysisResult is the aggregated, UI-facing analysis document. Stage
// outputs are flattened here: summary/keyPoints/sentiment come from the
// content stage rather than staying nested under a per-stage key.
type AnalysisResult struct {
	Structure        *StructureResult    `firestore:"structure,omitempty" json:"structure,omitempty"`
	Contract         *ContractDetails    `firestore:"contract,omitempty" json:"contract,omitempty"`
	ContractAnalysis *ContractAnalysis   `firestore:"contractAnalysis,omitempty" json:"contractAnalysis,omitempty"`
	Security         *SecurityAssessment `firestore:"security,omitempty" json:"security,omitempty"`
	Quality          *QualityReport      `firestore:"quality,omitempty" json:"quality,omitempty"`
	Summary          string              `firestore:"summary,omitempty" json:"summary,omitempty"`
	KeyPoints        []string            `firestore:"keyPoints,omitempty" json:"keyPoints,omitempty"`
	Sentiment        string              `firestore:"sentiment,omitempty" json:"sentiment,omitempty"`
	Confidence       float64             `firestore:"confidence" json:"confidence"`
	EntityCount      int                 `firestore:"entityCount" json:"entityCount"`
	AnalyzedAt       time.Time           `firestore:"analyzedAt" json:"analyzedAt"`
}
