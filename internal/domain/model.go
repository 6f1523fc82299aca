package domain

import "time"

// EvidenceNode is a unit of evidence in the graph: a bug, incident, artifact,
// attacker, mitigation and so on. Position and color are carried for external
// layout tools and are never interpreted by the store.
type EvidenceNode struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	NodeType    NodeType  `json:"nodeType"`
	Severity    Severity  `json:"severity"`
	PositionX   float64   `json:"positionX"`
	PositionY   float64   `json:"positionY"`
	Color       string    `json:"color"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Relation is a directed, typed edge between two nodes. The type is an
// operator-extensible string (CAUSES, EXPLOITS, MITIGATES, ...), not an enum.
type Relation struct {
	ID           uint      `json:"id"`
	SourceNodeID uint      `json:"sourceNodeId"`
	TargetNodeID uint      `json:"targetNodeId"`
	RelationType string    `json:"relationType"`
	Description  string    `json:"description,omitempty"`
	Confirmed    bool      `json:"confirmed"`
	Confidence   string    `json:"confidence,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TimelineEvent is a dated occurrence attached to exactly one node. EventDate
// is when the event happened; CreatedAt is when the record was stored.
type TimelineEvent struct {
	ID          uint      `json:"id"`
	NodeID      uint      `json:"nodeId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	EventDate   time.Time `json:"eventDate"`
	EventType   string    `json:"eventType,omitempty"`
	Evidence    string    `json:"evidence,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NodePatch carries a partial node update. Nil fields are left unchanged.
type NodePatch struct {
	Name        *string
	Description *string
	NodeType    *NodeType
	Severity    *Severity
	PositionX   *float64
	PositionY   *float64
	Color       *string
	Status      *string
}

// RelationUpdate overwrites every mutable relation field. Endpoints are not
// re-pointable.
type RelationUpdate struct {
	RelationType string
	Description  string
	Confirmed    bool
	Confidence   string
}

// EventUpdate overwrites every mutable timeline event field.
type EventUpdate struct {
	Title       string
	Description string
	EventDate   time.Time
	EventType   string
	Evidence    string
}

// Filters are equality predicates; nil fields match everything.

type NodeFilter struct {
	NodeType *NodeType
	Severity *Severity
	Status   *string
}

type RelationFilter struct {
	SourceNodeID *uint
	TargetNodeID *uint
	RelationType *string
}

type EventFilter struct {
	NodeID    *uint
	EventType *string
}

// GraphSnapshot is a consistent read of the whole graph, taken in a single
// transaction for report generation.
type GraphSnapshot struct {
	Nodes     []EvidenceNode
	Relations []Relation
}
