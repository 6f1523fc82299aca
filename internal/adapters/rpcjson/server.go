package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/detectivedex/evidencegraph/internal/application"
	"github.com/detectivedex/evidencegraph/internal/domain"
	"github.com/detectivedex/evidencegraph/internal/report"
)

// Server exposes the evidence graph over JSON-RPC 2.0 on a local unix socket.
// It is the transport behind the operator CLI.
type Server struct {
	service  *application.EvidenceService
	reports  *report.Generator
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, service *application.EvidenceService, reports *report.Generator) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, reports: reports, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "nodes.list":
		var p struct {
			NodeType string `json:"node_type"`
			Severity string `json:"severity"`
			Status   string `json:"status"`
		}
		_ = decodeParams(req.Params, &p)
		out, err := s.listNodes(ctx, p.NodeType, p.Severity, p.Status)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "nodes.get":
		var p struct {
			ID uint `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetNode(ctx, p.ID)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "nodes.create":
		var p application.CreateNodeInput
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateNode(ctx, p)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "nodes.update":
		var p struct {
			ID uint `json:"id"`
			application.UpdateNodeInput
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.UpdateNode(ctx, p.ID, p.UpdateNodeInput)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "nodes.delete":
		var p struct {
			ID uint `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.DeleteNode(ctx, p.ID); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "relations.list":
		var p struct {
			SourceNodeID *uint  `json:"source_node_id"`
			TargetNodeID *uint  `json:"target_node_id"`
			RelationType string `json:"relation_type"`
		}
		_ = decodeParams(req.Params, &p)
		out, err := s.listRelations(ctx, p.SourceNodeID, p.TargetNodeID, p.RelationType)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "relations.create":
		var p application.CreateRelationInput
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateRelation(ctx, p)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "relations.delete":
		var p struct {
			ID uint `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.DeleteRelation(ctx, p.ID); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"ok": true})
	case "timeline.list":
		var p struct {
			NodeID *uint `json:"node_id"`
		}
		_ = decodeParams(req.Params, &p)
		if p.NodeID != nil {
			out, err := s.service.ListEventsForNode(ctx, *p.NodeID)
			if err != nil {
				return appError(req.ID, err)
			}
			return result(req.ID, out)
		}
		out, err := s.service.ListEvents(ctx)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "timeline.create":
		var p struct {
			NodeID      uint   `json:"nodeId"`
			Title       string `json:"title"`
			Description string `json:"description"`
			EventDate   string `json:"eventDate"`
			EventType   string `json:"eventType"`
			Evidence    string `json:"evidence"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		eventDate, err := time.Parse(time.RFC3339, p.EventDate)
		if err != nil {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateEvent(ctx, application.CreateEventInput{
			NodeID:      p.NodeID,
			Title:       p.Title,
			Description: p.Description,
			EventDate:   eventDate,
			EventType:   p.EventType,
			Evidence:    p.Evidence,
		})
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "report.statistics":
		out, err := s.reports.Statistics(ctx)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, out)
	case "report.export":
		var p struct {
			Format string `json:"format"`
		}
		_ = decodeParams(req.Params, &p)
		format := strings.ToLower(strings.TrimSpace(p.Format))
		if format == "" {
			format = "json"
		}
		switch format {
		case "json":
			body, err := s.reports.ExportJSON(ctx)
			if err != nil {
				return internalError(req.ID, err)
			}
			return result(req.ID, map[string]any{"format": "json", "body": string(body)})
		case "html":
			body, err := s.reports.ExportHTML(ctx)
			if err != nil {
				return internalError(req.ID, err)
			}
			return result(req.ID, map[string]any{"format": "html", "body": string(body)})
		default:
			return invalidParams(req.ID)
		}
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func (s *Server) listNodes(ctx context.Context, nodeType, severity, status string) ([]domain.EvidenceNode, error) {
	switch {
	case strings.TrimSpace(nodeType) != "":
		return s.service.ListNodesByType(ctx, nodeType)
	case strings.TrimSpace(severity) != "":
		return s.service.ListNodesBySeverity(ctx, severity)
	case strings.TrimSpace(status) != "":
		return s.service.ListNodesByStatus(ctx, status)
	default:
		return s.service.ListNodes(ctx)
	}
}

func (s *Server) listRelations(ctx context.Context, sourceID, targetID *uint, relationType string) ([]domain.Relation, error) {
	switch {
	case sourceID != nil:
		return s.service.ListRelationsFrom(ctx, *sourceID)
	case targetID != nil:
		return s.service.ListRelationsTo(ctx, *targetID)
	case strings.TrimSpace(relationType) != "":
		return s.service.ListRelationsByType(ctx, relationType)
	default:
		return s.service.ListRelations(ctx)
	}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func result(id any, out any) response {
	return response{JSONRPC: "2.0", Result: out, ID: id}
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

func appError(id any, err error) response {
	if errors.Is(err, domain.ErrNotFound) {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40400, Message: "not found"}, ID: id}
	}
	if domain.IsValidation(err) {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40000, Message: err.Error()}, ID: id}
	}
	return internalError(id, err)
}

func internalError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 50000, Message: "internal error: " + err.Error()}, ID: id}
}
