package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/detectivedex/evidencegraph/internal/domain"
	"github.com/detectivedex/evidencegraph/internal/report"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func printNodes(items []domain.EvidenceNode) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			string(item.NodeType),
			string(item.Severity),
			item.Status,
			item.Name,
			formatTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "TYPE", "SEVERITY", "STATUS", "NAME", "CREATED_AT"}, rows)
}

func printNodeDetail(item domain.EvidenceNode) {
	printKV([][2]string{
		{"id", uintToString(item.ID)},
		{"name", item.Name},
		{"description", item.Description},
		{"type", string(item.NodeType)},
		{"severity", string(item.Severity)},
		{"status", item.Status},
		{"color", item.Color},
		{"created_at", formatTime(item.CreatedAt)},
		{"updated_at", formatTime(item.UpdatedAt)},
	})
}

func printRelations(items []domain.Relation) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			uintToString(item.SourceNodeID),
			item.RelationType,
			uintToString(item.TargetNodeID),
			strconv.FormatBool(item.Confirmed),
			item.Confidence,
		})
	}
	printTable([]string{"ID", "FROM", "RELATION", "TO", "CONFIRMED", "CONFIDENCE"}, rows)
}

func printEvents(items []domain.TimelineEvent) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			uintToString(item.NodeID),
			formatTime(item.EventDate),
			item.EventType,
			item.Title,
		})
	}
	printTable([]string{"ID", "NODE", "EVENT_DATE", "TYPE", "TITLE"}, rows)
}

func printStatistics(stats report.Statistics) {
	rows := [][2]string{
		{"total_nodes", strconv.Itoa(stats.TotalNodes)},
		{"total_relations", strconv.Itoa(stats.TotalRelations)},
	}
	for _, severity := range domain.Severities() {
		rows = append(rows, [2]string{"severity." + string(severity), strconv.Itoa(stats.NodesBySeverity[string(severity)])})
	}
	for _, status := range []string{"OPEN", "IN_PROGRESS", "RESOLVED"} {
		rows = append(rows, [2]string{"status." + status, strconv.Itoa(stats.NodesByStatus[status])})
	}
	printKV(rows)
}
