package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/detectivedex/evidencegraph/internal/domain"
	"github.com/go-playground/validator/v10"
)

// EvidenceService sits between the transport adapters and the store. It owns
// input validation and enum parsing; referential checks stay in the store so
// they share the mutation transaction.
type EvidenceService struct {
	store    domain.GraphStore
	validate *validator.Validate
}

func NewEvidenceService(store domain.GraphStore) *EvidenceService {
	return &EvidenceService{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type CreateNodeInput struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	NodeType    string  `json:"nodeType" validate:"required"`
	Severity    string  `json:"severity" validate:"required"`
	PositionX   float64 `json:"positionX"`
	PositionY   float64 `json:"positionY"`
	Color       string  `json:"color"`
	Status      string  `json:"status"`
}

type UpdateNodeInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	NodeType    *string  `json:"nodeType"`
	Severity    *string  `json:"severity"`
	PositionX   *float64 `json:"positionX"`
	PositionY   *float64 `json:"positionY"`
	Color       *string  `json:"color"`
	Status      *string  `json:"status"`
}

type CreateRelationInput struct {
	SourceNodeID uint   `json:"sourceNodeId" validate:"required"`
	TargetNodeID uint   `json:"targetNodeId" validate:"required"`
	RelationType string `json:"relationType" validate:"required"`
	Description  string `json:"description"`
	Confirmed    bool   `json:"confirmed"`
	Confidence   string `json:"confidence"`
}

type UpdateRelationInput struct {
	RelationType string `json:"relationType" validate:"required"`
	Description  string `json:"description"`
	Confirmed    bool   `json:"confirmed"`
	Confidence   string `json:"confidence"`
}

type CreateEventInput struct {
	NodeID      uint      `json:"nodeId" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	EventDate   time.Time `json:"eventDate" validate:"required"`
	EventType   string    `json:"eventType"`
	Evidence    string    `json:"evidence"`
}

type UpdateEventInput struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	EventDate   time.Time `json:"eventDate" validate:"required"`
	EventType   string    `json:"eventType"`
	Evidence    string    `json:"evidence"`
}

func (s *EvidenceService) CreateNode(ctx context.Context, in CreateNodeInput) (domain.EvidenceNode, error) {
	if err := s.check(in); err != nil {
		return domain.EvidenceNode{}, err
	}
	nodeType, err := domain.ParseNodeType(in.NodeType)
	if err != nil {
		return domain.EvidenceNode{}, err
	}
	severity, err := domain.ParseSeverity(in.Severity)
	if err != nil {
		return domain.EvidenceNode{}, err
	}

	return s.store.CreateNode(ctx, domain.EvidenceNode{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		NodeType:    nodeType,
		Severity:    severity,
		PositionX:   in.PositionX,
		PositionY:   in.PositionY,
		Color:       in.Color,
		Status:      in.Status,
	})
}

func (s *EvidenceService) GetNode(ctx context.Context, id uint) (domain.EvidenceNode, error) {
	return s.store.GetNode(ctx, id)
}

func (s *EvidenceService) ListNodes(ctx context.Context) ([]domain.EvidenceNode, error) {
	return s.store.ListNodes(ctx, domain.NodeFilter{})
}

func (s *EvidenceService) ListNodesByType(ctx context.Context, raw string) ([]domain.EvidenceNode, error) {
	nodeType, err := domain.ParseNodeType(raw)
	if err != nil {
		return nil, err
	}
	return s.store.ListNodes(ctx, domain.NodeFilter{NodeType: &nodeType})
}

func (s *EvidenceService) ListNodesBySeverity(ctx context.Context, raw string) ([]domain.EvidenceNode, error) {
	severity, err := domain.ParseSeverity(raw)
	if err != nil {
		return nil, err
	}
	return s.store.ListNodes(ctx, domain.NodeFilter{Severity: &severity})
}

// ListNodesByStatus matches the stored status verbatim: statuses are free-form
// and case-sensitive, unlike the enum filters.
func (s *EvidenceService) ListNodesByStatus(ctx context.Context, status string) ([]domain.EvidenceNode, error) {
	if strings.TrimSpace(status) == "" {
		return nil, domain.Invalidf("status is required")
	}
	return s.store.ListNodes(ctx, domain.NodeFilter{Status: &status})
}

func (s *EvidenceService) UpdateNode(ctx context.Context, id uint, in UpdateNodeInput) (domain.EvidenceNode, error) {
	patch := domain.NodePatch{
		Name:        in.Name,
		Description: in.Description,
		PositionX:   in.PositionX,
		PositionY:   in.PositionY,
		Color:       in.Color,
		Status:      in.Status,
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return domain.EvidenceNode{}, domain.Invalidf("name is required")
	}
	if in.NodeType != nil {
		nodeType, err := domain.ParseNodeType(*in.NodeType)
		if err != nil {
			return domain.EvidenceNode{}, err
		}
		patch.NodeType = &nodeType
	}
	if in.Severity != nil {
		severity, err := domain.ParseSeverity(*in.Severity)
		if err != nil {
			return domain.EvidenceNode{}, err
		}
		patch.Severity = &severity
	}

	return s.store.UpdateNode(ctx, id, patch)
}

func (s *EvidenceService) DeleteNode(ctx context.Context, id uint) error {
	return s.store.DeleteNode(ctx, id)
}

func (s *EvidenceService) CreateRelation(ctx context.Context, in CreateRelationInput) (domain.Relation, error) {
	if err := s.check(in); err != nil {
		return domain.Relation{}, err
	}

	return s.store.CreateRelation(ctx, domain.Relation{
		SourceNodeID: in.SourceNodeID,
		TargetNodeID: in.TargetNodeID,
		RelationType: in.RelationType,
		Description:  in.Description,
		Confirmed:    in.Confirmed,
		Confidence:   in.Confidence,
	})
}

func (s *EvidenceService) GetRelation(ctx context.Context, id uint) (domain.Relation, error) {
	return s.store.GetRelation(ctx, id)
}

func (s *EvidenceService) ListRelations(ctx context.Context) ([]domain.Relation, error) {
	return s.store.ListRelations(ctx, domain.RelationFilter{})
}

func (s *EvidenceService) ListRelationsFrom(ctx context.Context, nodeID uint) ([]domain.Relation, error) {
	return s.store.ListRelations(ctx, domain.RelationFilter{SourceNodeID: &nodeID})
}

func (s *EvidenceService) ListRelationsTo(ctx context.Context, nodeID uint) ([]domain.Relation, error) {
	return s.store.ListRelations(ctx, domain.RelationFilter{TargetNodeID: &nodeID})
}

func (s *EvidenceService) ListRelationsByType(ctx context.Context, relationType string) ([]domain.Relation, error) {
	if strings.TrimSpace(relationType) == "" {
		return nil, domain.Invalidf("relationType is required")
	}
	return s.store.ListRelations(ctx, domain.RelationFilter{RelationType: &relationType})
}

func (s *EvidenceService) UpdateRelation(ctx context.Context, id uint, in UpdateRelationInput) (domain.Relation, error) {
	if err := s.check(in); err != nil {
		return domain.Relation{}, err
	}

	return s.store.UpdateRelation(ctx, id, domain.RelationUpdate{
		RelationType: in.RelationType,
		Description:  in.Description,
		Confirmed:    in.Confirmed,
		Confidence:   in.Confidence,
	})
}

func (s *EvidenceService) DeleteRelation(ctx context.Context, id uint) error {
	return s.store.DeleteRelation(ctx, id)
}

func (s *EvidenceService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.TimelineEvent, error) {
	if err := s.check(in); err != nil {
		return domain.TimelineEvent{}, err
	}

	return s.store.CreateEvent(ctx, domain.TimelineEvent{
		NodeID:      in.NodeID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		EventDate:   in.EventDate,
		EventType:   in.EventType,
		Evidence:    in.Evidence,
	})
}

func (s *EvidenceService) GetEvent(ctx context.Context, id uint) (domain.TimelineEvent, error) {
	return s.store.GetEvent(ctx, id)
}

// ListEventsForNode reports not found for an unknown node rather than an
// empty timeline.
func (s *EvidenceService) ListEventsForNode(ctx context.Context, nodeID uint) ([]domain.TimelineEvent, error) {
	if _, err := s.store.GetNode(ctx, nodeID); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, domain.EventFilter{NodeID: &nodeID})
}

func (s *EvidenceService) ListEvents(ctx context.Context) ([]domain.TimelineEvent, error) {
	return s.store.ListEvents(ctx, domain.EventFilter{})
}

func (s *EvidenceService) ListEventsByType(ctx context.Context, eventType string) ([]domain.TimelineEvent, error) {
	if strings.TrimSpace(eventType) == "" {
		return nil, domain.Invalidf("eventType is required")
	}
	return s.store.ListEvents(ctx, domain.EventFilter{EventType: &eventType})
}

func (s *EvidenceService) UpdateEvent(ctx context.Context, id uint, in UpdateEventInput) (domain.TimelineEvent, error) {
	if err := s.check(in); err != nil {
		return domain.TimelineEvent{}, err
	}

	return s.store.UpdateEvent(ctx, id, domain.EventUpdate{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		EventDate:   in.EventDate,
		EventType:   in.EventType,
		Evidence:    in.Evidence,
	})
}

func (s *EvidenceService) DeleteEvent(ctx context.Context, id uint) error {
	return s.store.DeleteEvent(ctx, id)
}

func (s *EvidenceService) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return domain.Invalidf("%s is required", lowerFirst(fields[0].Field()))
	}

	return domain.Invalidf("invalid input")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
