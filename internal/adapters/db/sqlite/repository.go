package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/detectivedex/evidencegraph/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// defaultNodeColor matches the schema default: every node starts blue, whatever
// its severity. Severity colors are a display concern of the report layer.
const defaultNodeColor = "#3498db"

// GraphRepository persists the evidence graph in a single sqlite database.
// Every mutation runs inside one transaction so cascades commit atomically.
type GraphRepository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

func NewGraphRepository(db *gorm.DB) *GraphRepository {
	return &GraphRepository{db: db}
}

func (r *GraphRepository) CreateNode(ctx context.Context, value domain.EvidenceNode) (domain.EvidenceNode, error) {
	now := time.Now().UTC()
	m := NodeModel{
		Name:        value.Name,
		Description: value.Description,
		NodeType:    string(value.NodeType),
		Severity:    string(value.Severity),
		PositionX:   value.PositionX,
		PositionY:   value.PositionY,
		Color:       defaultString(value.Color, defaultNodeColor),
		Status:      defaultString(value.Status, "OPEN"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.EvidenceNode{}, err
	}

	return nodeFromModel(m), nil
}

func (r *GraphRepository) GetNode(ctx context.Context, id uint) (domain.EvidenceNode, error) {
	var m NodeModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.EvidenceNode{}, translate(err)
	}

	return nodeFromModel(m), nil
}

func (r *GraphRepository) ListNodes(ctx context.Context, filter domain.NodeFilter) ([]domain.EvidenceNode, error) {
	q := r.db.WithContext(ctx).Model(&NodeModel{})
	if filter.NodeType != nil {
		q = q.Where("node_type = ?", string(*filter.NodeType))
	}
	if filter.Severity != nil {
		q = q.Where("severity = ?", string(*filter.Severity))
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	rows := make([]NodeModel, 0)
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.EvidenceNode, 0, len(rows))
	for _, m := range rows {
		result = append(result, nodeFromModel(m))
	}

	return result, nil
}

func (r *GraphRepository) UpdateNode(ctx context.Context, id uint, patch domain.NodePatch) (domain.EvidenceNode, error) {
	var m NodeModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return translate(err)
		}

		updates := map[string]any{"updated_at": time.Now().UTC()}
		if patch.Name != nil {
			updates["name"] = *patch.Name
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.NodeType != nil {
			updates["node_type"] = string(*patch.NodeType)
		}
		if patch.Severity != nil {
			updates["severity"] = string(*patch.Severity)
		}
		if patch.PositionX != nil {
			updates["position_x"] = *patch.PositionX
		}
		if patch.PositionY != nil {
			updates["position_y"] = *patch.PositionY
		}
		if patch.Color != nil {
			updates["color"] = *patch.Color
		}
		if patch.Status != nil {
			updates["status"] = *patch.Status
		}

		if err := tx.Model(&NodeModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		return tx.First(&m, id).Error
	})
	if err != nil {
		return domain.EvidenceNode{}, err
	}

	return nodeFromModel(m), nil
}

// DeleteNode removes the node together with every relation touching it and
// every timeline event attached to it. All or nothing.
func (r *GraphRepository) DeleteNode(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m NodeModel
		if err := tx.First(&m, id).Error; err != nil {
			return translate(err)
		}

		if err := tx.Where("source_node_id = ? OR target_node_id = ?", id, id).Delete(&RelationModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("node_id = ?", id).Delete(&TimelineEventModel{}).Error; err != nil {
			return err
		}

		return tx.Delete(&NodeModel{}, id).Error
	})
}

func (r *GraphRepository) CreateRelation(ctx context.Context, value domain.Relation) (domain.Relation, error) {
	m := RelationModel{
		SourceNodeID: value.SourceNodeID,
		TargetNodeID: value.TargetNodeID,
		RelationType: value.RelationType,
		Description:  value.Description,
		Confirmed:    value.Confirmed,
		Confidence:   value.Confidence,
		CreatedAt:    time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&NodeModel{}).Where("id IN ?", []uint{value.SourceNodeID, value.TargetNodeID}).Count(&count).Error; err != nil {
			return err
		}
		want := int64(2)
		if value.SourceNodeID == value.TargetNodeID {
			want = 1
		}
		if count != want {
			return domain.Invalidf("source or target node not found")
		}

		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.Relation{}, err
	}

	return relationFromModel(m), nil
}

func (r *GraphRepository) GetRelation(ctx context.Context, id uint) (domain.Relation, error) {
	var m RelationModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Relation{}, translate(err)
	}

	return relationFromModel(m), nil
}

func (r *GraphRepository) ListRelations(ctx context.Context, filter domain.RelationFilter) ([]domain.Relation, error) {
	q := r.db.WithContext(ctx).Model(&RelationModel{})
	if filter.SourceNodeID != nil {
		q = q.Where("source_node_id = ?", *filter.SourceNodeID)
	}
	if filter.TargetNodeID != nil {
		q = q.Where("target_node_id = ?", *filter.TargetNodeID)
	}
	if filter.RelationType != nil {
		q = q.Where("relation_type = ?", *filter.RelationType)
	}

	rows := make([]RelationModel, 0)
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.Relation, 0, len(rows))
	for _, m := range rows {
		result = append(result, relationFromModel(m))
	}

	return result, nil
}

func (r *GraphRepository) UpdateRelation(ctx context.Context, id uint, update domain.RelationUpdate) (domain.Relation, error) {
	var m RelationModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return translate(err)
		}

		updates := map[string]any{
			"relation_type": update.RelationType,
			"description":   update.Description,
			"confirmed":     update.Confirmed,
			"confidence":    update.Confidence,
		}
		if err := tx.Model(&RelationModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		return tx.First(&m, id).Error
	})
	if err != nil {
		return domain.Relation{}, err
	}

	return relationFromModel(m), nil
}

func (r *GraphRepository) DeleteRelation(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m RelationModel
		if err := tx.First(&m, id).Error; err != nil {
			return translate(err)
		}

		return tx.Delete(&RelationModel{}, id).Error
	})
}

func (r *GraphRepository) CreateEvent(ctx context.Context, value domain.TimelineEvent) (domain.TimelineEvent, error) {
	m := TimelineEventModel{
		NodeID:      value.NodeID,
		Title:       value.Title,
		Description: value.Description,
		EventDate:   value.EventDate,
		EventType:   value.EventType,
		Evidence:    value.Evidence,
		CreatedAt:   time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&NodeModel{}).Where("id = ?", value.NodeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.Invalidf("evidence node not found")
		}

		return tx.Create(&m).Error
	})
	if err != nil {
		return domain.TimelineEvent{}, err
	}

	return eventFromModel(m), nil
}

func (r *GraphRepository) GetEvent(ctx context.Context, id uint) (domain.TimelineEvent, error) {
	var m TimelineEventModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.TimelineEvent{}, translate(err)
	}

	return eventFromModel(m), nil
}

func (r *GraphRepository) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.TimelineEvent, error) {
	q := r.db.WithContext(ctx).Model(&TimelineEventModel{})
	if filter.NodeID != nil {
		q = q.Where("node_id = ?", *filter.NodeID)
	}
	if filter.EventType != nil {
		q = q.Where("event_type = ?", *filter.EventType)
	}

	rows := make([]TimelineEventModel, 0)
	if err := q.Order("event_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.TimelineEvent, 0, len(rows))
	for _, m := range rows {
		result = append(result, eventFromModel(m))
	}

	return result, nil
}

func (r *GraphRepository) UpdateEvent(ctx context.Context, id uint, update domain.EventUpdate) (domain.TimelineEvent, error) {
	var m TimelineEventModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return translate(err)
		}

		updates := map[string]any{
			"title":       update.Title,
			"description": update.Description,
			"event_date":  update.EventDate,
			"event_type":  update.EventType,
			"evidence":    update.Evidence,
		}
		if err := tx.Model(&TimelineEventModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		return tx.First(&m, id).Error
	})
	if err != nil {
		return domain.TimelineEvent{}, err
	}

	return eventFromModel(m), nil
}

func (r *GraphRepository) DeleteEvent(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m TimelineEventModel
		if err := tx.First(&m, id).Error; err != nil {
			return translate(err)
		}

		return tx.Delete(&TimelineEventModel{}, id).Error
	})
}

// Snapshot reads nodes and relations in one transaction so a report never
// sees a relation whose endpoint is missing.
func (r *GraphRepository) Snapshot(ctx context.Context) (domain.GraphSnapshot, error) {
	var snapshot domain.GraphSnapshot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		nodeRows := make([]NodeModel, 0)
		if err := tx.Order("created_at DESC, id DESC").Find(&nodeRows).Error; err != nil {
			return err
		}

		relationRows := make([]RelationModel, 0)
		if err := tx.Order("created_at DESC, id DESC").Find(&relationRows).Error; err != nil {
			return err
		}

		snapshot.Nodes = make([]domain.EvidenceNode, 0, len(nodeRows))
		for _, m := range nodeRows {
			snapshot.Nodes = append(snapshot.Nodes, nodeFromModel(m))
		}
		snapshot.Relations = make([]domain.Relation, 0, len(relationRows))
		for _, m := range relationRows {
			snapshot.Relations = append(snapshot.Relations, relationFromModel(m))
		}

		return nil
	})
	if err != nil {
		return domain.GraphSnapshot{}, err
	}

	return snapshot, nil
}

func nodeFromModel(m NodeModel) domain.EvidenceNode {
	return domain.EvidenceNode{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		NodeType:    domain.NodeType(m.NodeType),
		Severity:    domain.Severity(m.Severity),
		PositionX:   m.PositionX,
		PositionY:   m.PositionY,
		Color:       m.Color,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func relationFromModel(m RelationModel) domain.Relation {
	return domain.Relation{
		ID:           m.ID,
		SourceNodeID: m.SourceNodeID,
		TargetNodeID: m.TargetNodeID,
		RelationType: m.RelationType,
		Description:  m.Description,
		Confirmed:    m.Confirmed,
		Confidence:   m.Confidence,
		CreatedAt:    m.CreatedAt,
	}
}

func eventFromModel(m TimelineEventModel) domain.TimelineEvent {
	return domain.TimelineEvent{
		ID:          m.ID,
		NodeID:      m.NodeID,
		Title:       m.Title,
		Description: m.Description,
		EventDate:   m.EventDate,
		EventType:   m.EventType,
		Evidence:    m.Evidence,
		CreatedAt:   m.CreatedAt,
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}

	return err
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}

	return input
}
