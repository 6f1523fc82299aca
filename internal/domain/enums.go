package domain

import "strings"

// NodeType is the closed vocabulary for evidence node kinds.
type NodeType string

const (
	NodeTypeBug                NodeType = "BUG"
	NodeTypeVulnerability      NodeType = "VULNERABILITY"
	NodeTypeIncident           NodeType = "INCIDENT"
	NodeTypeArtifact           NodeType = "ARTIFACT"
	NodeTypeEndpoint           NodeType = "ENDPOINT"
	NodeTypeAttacker           NodeType = "ATTACKER"
	NodeTypeMalware            NodeType = "MALWARE"
	NodeTypeIOC                NodeType = "IOC"
	NodeTypeImpact             NodeType = "IMPACT"
	NodeTypeMitigation         NodeType = "MITIGATION"
	NodeTypeEvidence           NodeType = "EVIDENCE"
	NodeTypeActor              NodeType = "ACTOR"
	NodeTypeDefensiveTechnique NodeType = "DEFENSIVE_TECHNIQUE"
)

var nodeTypeLabels = map[NodeType]string{
	NodeTypeBug:                "Bug",
	NodeTypeVulnerability:      "Vulnerability",
	NodeTypeIncident:           "Incident",
	NodeTypeArtifact:           "Artifact",
	NodeTypeEndpoint:           "Endpoint",
	NodeTypeAttacker:           "Attacker",
	NodeTypeMalware:            "Malware",
	NodeTypeIOC:                "Indicator of Compromise",
	NodeTypeImpact:             "Impact",
	NodeTypeMitigation:         "Mitigation",
	NodeTypeEvidence:           "Evidence",
	NodeTypeActor:              "Actor",
	NodeTypeDefensiveTechnique: "Defensive Technique (D3FEND)",
}

// ParseNodeType resolves a case-insensitive node type value.
func ParseNodeType(raw string) (NodeType, error) {
	t := NodeType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", Invalidf("Invalid node type")
	}
	return t, nil
}

func (t NodeType) Valid() bool {
	_, ok := nodeTypeLabels[t]
	return ok
}

func (t NodeType) Label() string {
	return nodeTypeLabels[t]
}

// Severity is the closed vocabulary for severity levels. Each level carries a
// display label, a numeric score used for report ordering, and a default color.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

type severityInfo struct {
	label string
	score int
	color string
}

var severityTable = map[Severity]severityInfo{
	SeverityCritical: {label: "Critical", score: 5, color: "#e74c3c"},
	SeverityHigh:     {label: "High", score: 4, color: "#e67e22"},
	SeverityMedium:   {label: "Medium", score: 3, color: "#f39c12"},
	SeverityLow:      {label: "Low", score: 2, color: "#3498db"},
	SeverityInfo:     {label: "Info", score: 1, color: "#95a5a6"},
}

// ParseSeverity resolves a case-insensitive severity value.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", Invalidf("Invalid severity level")
	}
	return s, nil
}

func (s Severity) Valid() bool {
	_, ok := severityTable[s]
	return ok
}

func (s Severity) Label() string {
	return severityTable[s].label
}

func (s Severity) Score() int {
	return severityTable[s].score
}

func (s Severity) DefaultColor() string {
	return severityTable[s].color
}

// Severities returns the five levels ordered by descending score.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}
