package sqlite

import "time"

type NodeModel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string
	NodeType    string `gorm:"not null;index"`
	Severity    string `gorm:"not null;index"`
	PositionX   float64
	PositionY   float64
	Color       string `gorm:"not null;default:'#3498db'"`
	Status      string `gorm:"not null;default:'OPEN';index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (NodeModel) TableName() string { return "evidence_nodes" }

type RelationModel struct {
	ID           uint   `gorm:"primaryKey"`
	SourceNodeID uint   `gorm:"not null;index"`
	TargetNodeID uint   `gorm:"not null;index"`
	RelationType string `gorm:"not null;index"`
	Description  string
	Confirmed    bool `gorm:"not null;default:false"`
	Confidence   string
	CreatedAt    time.Time
}

func (RelationModel) TableName() string { return "relations" }

type TimelineEventModel struct {
	ID          uint   `gorm:"primaryKey"`
	NodeID      uint   `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Description string
	EventDate   time.Time `gorm:"not null"`
	EventType   string    `gorm:"index"`
	Evidence    string
	CreatedAt   time.Time
}

func (TimelineEventModel) TableName() string { return "timeline_events" }
