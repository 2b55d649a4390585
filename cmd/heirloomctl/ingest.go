package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"heirloom/pkg/app"
	svc "heirloom/pkg/services"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Batch insert knowledge records from a JSON or YAML file",
	Long: `Batch insert knowledge records. The file holds a list of records with
title, content and optional summary, category, source, tags and priority.
Records without a source are stored as synthetic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := readRecords(ingestFile)
		if err != nil {
			return err
		}
		a, err := app.Build(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Knowledge.BatchInsert(cmd.Context(), records)
		if err != nil {
			return err
		}
		cmd.Printf("inserted %d knowledge record(s)\n", n)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "records file (.json, .yaml or .yml)")
	_ = ingestCmd.MarkFlagRequired("file")
}

// yamlRecord mirrors KnowledgeInput with yaml keys.
type yamlRecord struct {
	Title    string   `yaml:"title"`
	Content  string   `yaml:"content"`
	Summary  string   `yaml:"summary"`
	Category string   `yaml:"category"`
	Source   string   `yaml:"source"`
	Tags     []string `yaml:"tags"`
	Priority *int     `yaml:"priority"`
}

func readRecords(path string) ([]svc.KnowledgeInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var records []svc.KnowledgeInput
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("invalid json records: %w", err)
		}
	case ".yaml", ".yml":
		var raw []yamlRecord
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid yaml records: %w", err)
		}
		for _, r := range raw {
			records = append(records, svc.KnowledgeInput(r))
		}
	default:
		return nil, fmt.Errorf("unsupported records file %q", filepath.Base(path))
	}
	if len(records) == 0 {
		return nil, errors.New("records file is empty")
	}
	return records, nil
}
