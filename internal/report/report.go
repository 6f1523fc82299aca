package report

import (
	"context"
	"encoding/json"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/detectivedex/evidencegraph/internal/domain"
)

// SnapshotSource is the slice of the store the generator needs.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (domain.GraphSnapshot, error)
}

// Generator renders exports from a single consistent snapshot of the graph.
type Generator struct {
	store SnapshotSource
	now   func() time.Time
}

func NewGenerator(store SnapshotSource) *Generator {
	return &Generator{store: store, now: func() time.Time { return time.Now().UTC() }}
}

type ExportNode struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	NodeType  domain.NodeType `json:"nodeType"`
	Severity  domain.Severity `json:"severity"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ExportRelation struct {
	ID           uint   `json:"id"`
	SourceNodeID uint   `json:"sourceNodeId"`
	TargetNodeID uint   `json:"targetNodeId"`
	RelationType string `json:"relationType"`
	Confirmed    bool   `json:"confirmed"`
}

type ExportDocument struct {
	ExportDate    time.Time        `json:"exportDate"`
	NodeCount     int              `json:"nodeCount"`
	RelationCount int              `json:"relationCount"`
	Nodes         []ExportNode     `json:"nodes"`
	Relations     []ExportRelation `json:"relations"`
}

type Statistics struct {
	TotalNodes      int            `json:"totalNodes"`
	TotalRelations  int            `json:"totalRelations"`
	NodesBySeverity map[string]int `json:"nodesBySeverity"`
	NodesByStatus   map[string]int `json:"nodesByStatus"`
}

// ExportJSON serializes the whole graph, newest records first.
func (g *Generator) ExportJSON(ctx context.Context) ([]byte, error) {
	snapshot, err := g.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	doc := ExportDocument{
		ExportDate:    g.now(),
		NodeCount:     len(snapshot.Nodes),
		RelationCount: len(snapshot.Relations),
		Nodes:         make([]ExportNode, 0, len(snapshot.Nodes)),
		Relations:     make([]ExportRelation, 0, len(snapshot.Relations)),
	}
	for _, node := range snapshot.Nodes {
		doc.Nodes = append(doc.Nodes, ExportNode{
			ID:        node.ID,
			Name:      node.Name,
			NodeType:  node.NodeType,
			Severity:  node.Severity,
			Status:    node.Status,
			CreatedAt: node.CreatedAt,
		})
	}
	for _, rel := range snapshot.Relations {
		doc.Relations = append(doc.Relations, ExportRelation{
			ID:           rel.ID,
			SourceNodeID: rel.SourceNodeID,
			TargetNodeID: rel.TargetNodeID,
			RelationType: rel.RelationType,
			Confirmed:    rel.Confirmed,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

type htmlNode struct {
	Name          string
	Description   string
	SeverityClass string
	SeverityLabel string
	TypeLabel     string
	Status        string
	CreatedAt     string
}

type htmlReport struct {
	GeneratedAt   string
	TotalNodes    int
	CriticalCount int
	HighCount     int
	MediumCount   int
	LowCount      int
	Nodes         []htmlNode
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Evidence Graph Report</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 20px; background: #f5f5f5; }
    .header { background: #2c3e50; color: white; padding: 20px; border-radius: 5px; }
    .summary { background: white; padding: 20px; margin: 20px 0; border-radius: 5px; }
    .node-section { background: white; padding: 20px; margin: 20px 0; border-radius: 5px; }
    .node-item { border-left: 4px solid #3498db; padding: 15px; margin: 10px 0; background: #ecf0f1; }
    .critical { border-left-color: #e74c3c; }
    .high { border-left-color: #e67e22; }
    .medium { border-left-color: #f39c12; }
    .low { border-left-color: #3498db; }
    .badge { display: inline-block; padding: 5px 10px; margin: 5px 5px 5px 0; border-radius: 3px; font-size: 12px; font-weight: bold; }
    .badge-critical { background: #e74c3c; color: white; }
    .badge-high { background: #e67e22; color: white; }
    .badge-medium { background: #f39c12; color: white; }
    .badge-low { background: #3498db; color: white; }
    .badge-info { background: #95a5a6; color: white; }
  </style>
</head>
<body>
  <div class="header">
    <h1>Evidence Graph Report</h1>
    <p>Generated {{.GeneratedAt}}</p>
  </div>
  <div class="summary">
    <h2>Summary</h2>
    <p><strong>Total nodes:</strong> {{.TotalNodes}}</p>
    <p><span class="badge badge-critical">CRITICAL: {{.CriticalCount}}</span>
       <span class="badge badge-high">HIGH: {{.HighCount}}</span>
       <span class="badge badge-medium">MEDIUM: {{.MediumCount}}</span>
       <span class="badge badge-low">LOW: {{.LowCount}}</span></p>
  </div>
  <div class="node-section">
    <h2>Node Details</h2>
{{range .Nodes}}    <div class="node-item {{.SeverityClass}}">
      <h3>{{.Name}}</h3>
      <p><span class="badge badge-{{.SeverityClass}}">{{.SeverityLabel}}</span> <span class="badge badge-info">{{.TypeLabel}}</span></p>
{{if .Description}}      <p>{{.Description}}</p>
{{end}}      <p><small>Created {{.CreatedAt}} | Status: {{.Status}}</small></p>
    </div>
{{end}}  </div>
</body>
</html>
`))

// ExportHTML renders the summary report, most severe nodes first.
func (g *Generator) ExportHTML(ctx context.Context) ([]byte, error) {
	snapshot, err := g.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make([]domain.EvidenceNode, len(snapshot.Nodes))
	copy(nodes, snapshot.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Severity.Score() != nodes[j].Severity.Score() {
			return nodes[i].Severity.Score() > nodes[j].Severity.Score()
		}
		return nodes[i].CreatedAt.After(nodes[j].CreatedAt)
	})

	data := htmlReport{
		GeneratedAt: g.now().Format("02/01/2006 15:04:05"),
		TotalNodes:  len(nodes),
	}
	for _, node := range nodes {
		switch node.Severity {
		case domain.SeverityCritical:
			data.CriticalCount++
		case domain.SeverityHigh:
			data.HighCount++
		case domain.SeverityMedium:
			data.MediumCount++
		case domain.SeverityLow:
			data.LowCount++
		}
		data.Nodes = append(data.Nodes, htmlNode{
			Name:          node.Name,
			Description:   node.Description,
			SeverityClass: strings.ToLower(string(node.Severity)),
			SeverityLabel: node.Severity.Label(),
			TypeLabel:     node.NodeType.Label(),
			Status:        node.Status,
			CreatedAt:     node.CreatedAt.Format("02/01/2006 15:04:05"),
		})
	}

	var buf strings.Builder
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}

	return []byte(buf.String()), nil
}

// Statistics counts nodes per severity and per recognized status. Severity
// keys are always present; statuses outside OPEN, IN_PROGRESS and RESOLVED
// are not broken out.
func (g *Generator) Statistics(ctx context.Context) (Statistics, error) {
	snapshot, err := g.store.Snapshot(ctx)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		TotalNodes:      len(snapshot.Nodes),
		TotalRelations:  len(snapshot.Relations),
		NodesBySeverity: map[string]int{},
		NodesByStatus:   map[string]int{"OPEN": 0, "IN_PROGRESS": 0, "RESOLVED": 0},
	}
	for _, severity := range domain.Severities() {
		stats.NodesBySeverity[string(severity)] = 0
	}
	for _, node := range snapshot.Nodes {
		stats.NodesBySeverity[string(node.Severity)]++
		if _, ok := stats.NodesByStatus[node.Status]; ok {
			stats.NodesByStatus[node.Status]++
		}
	}

	return stats, nil
}
