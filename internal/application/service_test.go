package application

import (
	"context"
	"testing"
	"time"

	"github.com/detectivedex/evidencegraph/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps everything in maps; enough to exercise the service layer
// without a database.
type fakeStore struct {
	nodes     map[uint]domain.EvidenceNode
	relations map[uint]domain.Relation
	events    map[uint]domain.TimelineEvent
	nextID    uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:     map[uint]domain.EvidenceNode{},
		relations: map[uint]domain.Relation{},
		events:    map[uint]domain.TimelineEvent{},
	}
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateNode(_ context.Context, value domain.EvidenceNode) (domain.EvidenceNode, error) {
	value.ID = f.id()
	now := time.Now().UTC()
	value.CreatedAt = now
	value.UpdatedAt = now
	if value.Status == "" {
		value.Status = "OPEN"
	}
	if value.Color == "" {
		value.Color = "#3498db"
	}
	f.nodes[value.ID] = value
	return value, nil
}

func (f *fakeStore) GetNode(_ context.Context, id uint) (domain.EvidenceNode, error) {
	node, ok := f.nodes[id]
	if !ok {
		return domain.EvidenceNode{}, domain.ErrNotFound
	}
	return node, nil
}

func (f *fakeStore) ListNodes(_ context.Context, filter domain.NodeFilter) ([]domain.EvidenceNode, error) {
	result := make([]domain.EvidenceNode, 0)
	for _, node := range f.nodes {
		if filter.NodeType != nil && node.NodeType != *filter.NodeType {
			continue
		}
		if filter.Severity != nil && node.Severity != *filter.Severity {
			continue
		}
		if filter.Status != nil && node.Status != *filter.Status {
			continue
		}
		result = append(result, node)
	}
	return result, nil
}

func (f *fakeStore) UpdateNode(_ context.Context, id uint, patch domain.NodePatch) (domain.EvidenceNode, error) {
	node, ok := f.nodes[id]
	if !ok {
		return domain.EvidenceNode{}, domain.ErrNotFound
	}
	if patch.Name != nil {
		node.Name = *patch.Name
	}
	if patch.Description != nil {
		node.Description = *patch.Description
	}
	if patch.NodeType != nil {
		node.NodeType = *patch.NodeType
	}
	if patch.Severity != nil {
		node.Severity = *patch.Severity
	}
	if patch.Status != nil {
		node.Status = *patch.Status
	}
	node.UpdatedAt = time.Now().UTC()
	f.nodes[id] = node
	return node, nil
}

func (f *fakeStore) DeleteNode(_ context.Context, id uint) error {
	if _, ok := f.nodes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.nodes, id)
	return nil
}

func (f *fakeStore) CreateRelation(_ context.Context, value domain.Relation) (domain.Relation, error) {
	if _, ok := f.nodes[value.SourceNodeID]; !ok {
		return domain.Relation{}, domain.Invalidf("source or target node not found")
	}
	if _, ok := f.nodes[value.TargetNodeID]; !ok {
		return domain.Relation{}, domain.Invalidf("source or target node not found")
	}
	value.ID = f.id()
	value.CreatedAt = time.Now().UTC()
	f.relations[value.ID] = value
	return value, nil
}

func (f *fakeStore) GetRelation(_ context.Context, id uint) (domain.Relation, error) {
	rel, ok := f.relations[id]
	if !ok {
		return domain.Relation{}, domain.ErrNotFound
	}
	return rel, nil
}

func (f *fakeStore) ListRelations(_ context.Context, filter domain.RelationFilter) ([]domain.Relation, error) {
	result := make([]domain.Relation, 0)
	for _, rel := range f.relations {
		if filter.SourceNodeID != nil && rel.SourceNodeID != *filter.SourceNodeID {
			continue
		}
		if filter.TargetNodeID != nil && rel.TargetNodeID != *filter.TargetNodeID {
			continue
		}
		if filter.RelationType != nil && rel.RelationType != *filter.RelationType {
			continue
		}
		result = append(result, rel)
	}
	return result, nil
}

func (f *fakeStore) UpdateRelation(_ context.Context, id uint, update domain.RelationUpdate) (domain.Relation, error) {
	rel, ok := f.relations[id]
	if !ok {
		return domain.Relation{}, domain.ErrNotFound
	}
	rel.RelationType = update.RelationType
	rel.Description = update.Description
	rel.Confirmed = update.Confirmed
	rel.Confidence = update.Confidence
	f.relations[id] = rel
	return rel, nil
}

func (f *fakeStore) DeleteRelation(_ context.Context, id uint) error {
	if _, ok := f.relations[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.relations, id)
	return nil
}

func (f *fakeStore) CreateEvent(_ context.Context, value domain.TimelineEvent) (domain.TimelineEvent, error) {
	if _, ok := f.nodes[value.NodeID]; !ok {
		return domain.TimelineEvent{}, domain.Invalidf("evidence node not found")
	}
	value.ID = f.id()
	value.CreatedAt = time.Now().UTC()
	f.events[value.ID] = value
	return value, nil
}

func (f *fakeStore) GetEvent(_ context.Context, id uint) (domain.TimelineEvent, error) {
	event, ok := f.events[id]
	if !ok {
		return domain.TimelineEvent{}, domain.ErrNotFound
	}
	return event, nil
}

func (f *fakeStore) ListEvents(_ context.Context, filter domain.EventFilter) ([]domain.TimelineEvent, error) {
	result := make([]domain.TimelineEvent, 0)
	for _, event := range f.events {
		if filter.NodeID != nil && event.NodeID != *filter.NodeID {
			continue
		}
		if filter.EventType != nil && event.EventType != *filter.EventType {
			continue
		}
		result = append(result, event)
	}
	return result, nil
}

func (f *fakeStore) UpdateEvent(_ context.Context, id uint, update domain.EventUpdate) (domain.TimelineEvent, error) {
	event, ok := f.events[id]
	if !ok {
		return domain.TimelineEvent{}, domain.ErrNotFound
	}
	event.Title = update.Title
	event.Description = update.Description
	event.EventDate = update.EventDate
	event.EventType = update.EventType
	event.Evidence = update.Evidence
	f.events[id] = event
	return event, nil
}

func (f *fakeStore) DeleteEvent(_ context.Context, id uint) error {
	if _, ok := f.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeStore) Snapshot(ctx context.Context) (domain.GraphSnapshot, error) {
	nodes, _ := f.ListNodes(ctx, domain.NodeFilter{})
	relations, _ := f.ListRelations(ctx, domain.RelationFilter{})
	return domain.GraphSnapshot{Nodes: nodes, Relations: relations}, nil
}

func TestCreateNodeValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewEvidenceService(newFakeStore())

	_, err := svc.CreateNode(ctx, CreateNodeInput{NodeType: "BUG", Severity: "HIGH"})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "name is required")

	_, err = svc.CreateNode(ctx, CreateNodeInput{Name: "x", NodeType: "SPACESHIP", Severity: "HIGH"})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "Invalid node type")

	_, err = svc.CreateNode(ctx, CreateNodeInput{Name: "x", NodeType: "BUG", Severity: "EXTREME"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid severity level")
}

func TestCreateNodeParsesCaseInsensitiveEnums(t *testing.T) {
	ctx := context.Background()
	svc := NewEvidenceService(newFakeStore())

	node, err := svc.CreateNode(ctx, CreateNodeInput{Name: "heap overflow", NodeType: "vulnerability", Severity: "critical"})
	require.NoError(t, err)
	assert.Equal(t, domain.NodeTypeVulnerability, node.NodeType)
	assert.Equal(t, domain.SeverityCritical, node.Severity)
	assert.Equal(t, "OPEN", node.Status)
}

func TestUpdateNodeRejectsBlankName(t *testing.T) {
	ctx := context.Background()
	svc := NewEvidenceService(newFakeStore())

	node, err := svc.CreateNode(ctx, CreateNodeInput{Name: "ioc", NodeType: "IOC", Severity: "INFO"})
	require.NoError(t, err)

	blank := "   "
	_, err = svc.UpdateNode(ctx, node.ID, UpdateNodeInput{Name: &blank})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestCreateRelationStoresTypeVerbatim(t *testing.T) {
	ctx := context.Background()
	svc := NewEvidenceService(newFakeStore())

	a, err := svc.CreateNode(ctx, CreateNodeInput{Name: "a", NodeType: "BUG", Severity: "LOW"})
	require.NoError(t, err)
	b, err := svc.CreateNode(ctx, CreateNodeInput{Name: "b", NodeType: "BUG", Severity: "LOW"})
	require.NoError(t, err)

	rel, err := svc.CreateRelation(ctx, CreateRelationInput{SourceNodeID: a.ID, TargetNodeID: b.ID, RelationType: "causes"})
	require.NoError(t, err)
	assert.Equal(t, "causes", rel.RelationType)

	byType, err := svc.ListRelationsByType(ctx, "causes")
	require.NoError(t, err)
	require.Len(t, byType, 1)

	upper, err := svc.ListRelationsByType(ctx, "CAUSES")
	require.NoError(t, err)
	assert.Empty(t, upper)
}

func TestListNodesByStatusMatchesVerbatim(t *testing.T) {
	ctx := context.Background()
	svc := NewEvidenceService(newFakeStore())

	_, err := svc.CreateNode(ctx, CreateNodeInput{Name: "n", NodeType: "BUG", Severity: "LOW", Status: "triage"})
	require.NoError(t, err)

	nodes, err := svc.ListNodesByStatus(ctx, "triage")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "triage", nodes[0].Status)

	upper, err := svc.ListNodesByStatus(ctx, "TRIAGE")
	require.NoError(t, err)
	assert.Empty(t, upper)
}

func TestListEventsForUnknownNodeReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewEvidenceService(newFakeStore())

	_, err := svc.ListEventsForNode(ctx, 77)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateEventRequiresDateAndTitle(t *testing.T) {
	ctx := context.Background()
	svc := NewEvidenceService(newFakeStore())

	node, err := svc.CreateNode(ctx, CreateNodeInput{Name: "incident", NodeType: "INCIDENT", Severity: "HIGH"})
	require.NoError(t, err)

	_, err = svc.CreateEvent(ctx, CreateEventInput{NodeID: node.ID, EventDate: time.Now().UTC()})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.CreateEvent(ctx, CreateEventInput{NodeID: node.ID, Title: "first seen"})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	event, err := svc.CreateEvent(ctx, CreateEventInput{NodeID: node.ID, Title: "first seen", EventDate: time.Now().UTC(), EventType: "detection"})
	require.NoError(t, err)
	assert.Equal(t, "detection", event.EventType)
}
