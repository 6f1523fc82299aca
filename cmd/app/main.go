package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sqliteadapter "github.com/detectivedex/evidencegraph/internal/adapters/db/sqlite"
	httpadapter "github.com/detectivedex/evidencegraph/internal/adapters/http"
	rpcadapter "github.com/detectivedex/evidencegraph/internal/adapters/rpcjson"
	"github.com/detectivedex/evidencegraph/internal/application"
	"github.com/detectivedex/evidencegraph/internal/domain"
	"github.com/detectivedex/evidencegraph/internal/report"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "evidencegraph",
		Usage: "Evidence graph store server and CLI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "socket", Usage: "JSON-RPC unix socket path (overrides config)"},
		},
		Commands: []*cli.Command{
			serverCommand(),
			nodesCommand(),
			relationsCommand(),
			timelineCommand(),
			reportCommand(),
			configCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServer(ctx, ":8080", defaultSocket, "evidencegraph.db", nil)
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP and JSON-RPC servers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Value: defaultSocket, Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "db-path", Value: "evidencegraph.db", Usage: "SQLite database path"},
			&cli.StringSliceFlag{Name: "cors-origin", Usage: "allowed CORS origin (repeatable, default *)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, c.String("addr"), c.String("rpc-socket"), c.String("db-path"), c.StringSlice("cors-origin"))
		},
	}
}

func runServer(ctx context.Context, addr, rpcSocket, dbPath string, corsOrigins []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		return err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}

	repo := sqliteadapter.NewGraphRepository(db)
	service := application.NewEvidenceService(repo)
	reports := report.NewGenerator(repo)

	router := httpadapter.NewRouter(service, reports, logger, corsOrigins)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(rpcSocket, service, reports)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	logger.Info("json-rpc listening", zap.String("socket", rpcSocket))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func nodesCommand() *cli.Command {
	return &cli.Command{
		Name:  "nodes",
		Usage: "Evidence node commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List nodes, optionally filtered by one of type/severity/status",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type"},
					&cli.StringFlag{Name: "severity"},
					&cli.StringFlag{Name: "status"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					params := map[string]any{
						"node_type": c.String("type"),
						"severity":  c.String("severity"),
						"status":    c.String("status"),
					}
					var out []domain.EvidenceNode
					if err := client.call(ctx, "nodes.list", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printNodes(out)
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show one node",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					var out domain.EvidenceNode
					if err := client.call(ctx, "nodes.get", map[string]any{"id": c.Uint("id")}, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printNodeDetail(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create a node",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "type", Required: true},
					&cli.StringFlag{Name: "severity", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "status"},
					&cli.StringFlag{Name: "color"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					in := application.CreateNodeInput{
						Name:        c.String("name"),
						NodeType:    c.String("type"),
						Severity:    c.String("severity"),
						Description: c.String("description"),
						Status:      c.String("status"),
						Color:       c.String("color"),
					}
					var out domain.EvidenceNode
					if err := client.call(ctx, "nodes.create", in, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printNodeDetail(out)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Patch node fields; unset flags are left unchanged",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "type"},
					&cli.StringFlag{Name: "severity"},
					&cli.StringFlag{Name: "status"},
					&cli.StringFlag{Name: "color"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					params := map[string]any{"id": c.Uint("id")}
					for flag, key := range map[string]string{
						"name": "name", "description": "description", "type": "nodeType",
						"severity": "severity", "status": "status", "color": "color",
					} {
						if c.IsSet(flag) {
							params[key] = c.String(flag)
						}
					}
					var out domain.EvidenceNode
					if err := client.call(ctx, "nodes.update", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printNodeDetail(out)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a node and its relations and timeline events",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					if err := client.call(ctx, "nodes.delete", map[string]any{"id": c.Uint("id")}, nil); err != nil {
						return err
					}
					fmt.Printf("deleted node %d\n", c.Uint("id"))
					return nil
				},
			},
		},
	}
}

func relationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "relations",
		Usage: "Relation commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List relations, optionally filtered by one of from/to/type",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "from"},
					&cli.UintFlag{Name: "to"},
					&cli.StringFlag{Name: "type"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					params := map[string]any{"relation_type": c.String("type")}
					if c.IsSet("from") {
						params["source_node_id"] = c.Uint("from")
					}
					if c.IsSet("to") {
						params["target_node_id"] = c.Uint("to")
					}
					var out []domain.Relation
					if err := client.call(ctx, "relations.list", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRelations(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Connect two nodes",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "from", Required: true},
					&cli.UintFlag{Name: "to", Required: true},
					&cli.StringFlag{Name: "type", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.BoolFlag{Name: "confirmed"},
					&cli.StringFlag{Name: "confidence"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					in := application.CreateRelationInput{
						SourceNodeID: uint(c.Uint("from")),
						TargetNodeID: uint(c.Uint("to")),
						RelationType: c.String("type"),
						Description:  c.String("description"),
						Confirmed:    c.Bool("confirmed"),
						Confidence:   c.String("confidence"),
					}
					var out domain.Relation
					if err := client.call(ctx, "relations.create", in, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRelations([]domain.Relation{out})
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a relation by id",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					if err := client.call(ctx, "relations.delete", map[string]any{"id": c.Uint("id")}, nil); err != nil {
						return err
					}
					fmt.Printf("deleted relation %d\n", c.Uint("id"))
					return nil
				},
			},
		},
	}
}

func timelineCommand() *cli.Command {
	return &cli.Command{
		Name:  "timeline",
		Usage: "Timeline event commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List timeline events, optionally for one node",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "node"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					params := map[string]any{}
					if c.IsSet("node") {
						params["node_id"] = c.Uint("node")
					}
					var out []domain.TimelineEvent
					if err := client.call(ctx, "timeline.list", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printEvents(out)
					return nil
				},
			},
			{
				Name:  "add",
				Usage: "Record an event on a node",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "node", Required: true},
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "date", Required: true, Usage: "event date, RFC3339"},
					&cli.StringFlag{Name: "type"},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "evidence"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					params := map[string]any{
						"nodeId":      c.Uint("node"),
						"title":       c.String("title"),
						"eventDate":   c.String("date"),
						"eventType":   c.String("type"),
						"description": c.String("description"),
						"evidence":    c.String("evidence"),
					}
					var out domain.TimelineEvent
					if err := client.call(ctx, "timeline.create", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printEvents([]domain.TimelineEvent{out})
					return nil
				},
			},
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Report commands",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show graph statistics",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					var out report.Statistics
					if err := client.call(ctx, "report.statistics", nil, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printStatistics(out)
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "Export the graph as JSON or an HTML summary",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: "json", Usage: "json or html"},
					&cli.StringFlag{Name: "output", Usage: "write to file instead of stdout"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					client, err := dialFromConfig(c.String("socket"))
					if err != nil {
						return err
					}
					var out struct {
						Format string `json:"format"`
						Body   string `json:"body"`
					}
					params := map[string]any{"format": c.String("format")}
					if err := client.call(ctx, "report.export", params, &out); err != nil {
						return err
					}
					if path := c.String("output"); path != "" {
						return os.WriteFile(path, []byte(out.Body), 0o644)
					}
					fmt.Print(out.Body)
					return nil
				},
			},
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage CLI configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the active configuration",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					return printJSON(cfg)
				},
			},
			{
				Name:  "set-socket",
				Usage: "Persist the JSON-RPC socket path",
				Flags: []cli.Flag{&cli.StringFlag{Name: "path", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					cfg.Socket = c.String("path")
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("socket set to %s\n", cfg.Socket)
					return nil
				},
			},
		},
	}
}
