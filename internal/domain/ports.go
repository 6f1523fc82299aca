package domain

import "context"

// GraphStore is the sole authority over the three entity collections. Every
// mutation is applied atomically: fully committed or fully rolled back.
type GraphStore interface {
	CreateNode(ctx context.Context, value EvidenceNode) (EvidenceNode, error)
	GetNode(ctx context.Context, id uint) (EvidenceNode, error)
	ListNodes(ctx context.Context, filter NodeFilter) ([]EvidenceNode, error)
	UpdateNode(ctx context.Context, id uint, patch NodePatch) (EvidenceNode, error)
	DeleteNode(ctx context.Context, id uint) error

	CreateRelation(ctx context.Context, value Relation) (Relation, error)
	GetRelation(ctx context.Context, id uint) (Relation, error)
	ListRelations(ctx context.Context, filter RelationFilter) ([]Relation, error)
	UpdateRelation(ctx context.Context, id uint, update RelationUpdate) (Relation, error)
	DeleteRelation(ctx context.Context, id uint) error

	CreateEvent(ctx context.Context, value TimelineEvent) (TimelineEvent, error)
	GetEvent(ctx context.Context, id uint) (TimelineEvent, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]TimelineEvent, error)
	UpdateEvent(ctx context.Context, id uint, update EventUpdate) (TimelineEvent, error)
	DeleteEvent(ctx context.Context, id uint) error

	Snapshot(ctx context.Context) (GraphSnapshot, error)
}
