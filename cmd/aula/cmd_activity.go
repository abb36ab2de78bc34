package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aulaplay/aula/internal/activity"
	"github.com/aulaplay/aula/internal/config"
	"github.com/aulaplay/aula/internal/domain"
)

// cmdActivity handles activity subcommands
func cmdActivity(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: aula activity <list|show|validate>")
	}

	switch args[0] {
	case "list":
		return activityList()
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: aula activity show <id>")
		}
		return activityShow(args[1])
	case "validate":
		if len(args) < 2 {
			return fmt.Errorf("usage: aula activity validate <file>")
		}
		return activityValidate(args[1])
	default:
		return fmt.Errorf("unknown activity command: %s", args[0])
	}
}

func loadRegistry() (*activity.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	registry := activity.NewRegistry(cfg.ActivitiesPath)
	if err := registry.Load(); err != nil {
		return nil, fmt.Errorf("load activities from %s: %w", cfg.ActivitiesPath, err)
	}
	return registry, nil
}

func activityList() error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	acts := registry.List()
	if len(acts) == 0 {
		fmt.Println("No activities found. Set ACTIVITIES_PATH or add documents to ./activities.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTEMPLATE\tTITLE")
	for _, act := range acts {
		meta := act.Meta()
		fmt.Fprintf(w, "%s\t%s\t%s\n", meta.ID, act.Template(), meta.Title)
	}
	return w.Flush()
}

func activityShow(id string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	act, err := registry.Get(id)
	if err != nil {
		return err
	}

	meta := act.Meta()
	fmt.Printf("ID:           %s\n", meta.ID)
	fmt.Printf("Template:     %s\n", act.Template())
	fmt.Printf("Title:        %s\n", meta.Title)
	if meta.Instructions != "" {
		fmt.Printf("Instructions: %s\n", meta.Instructions)
	}
	fmt.Printf("Hints:        %d\n", len(meta.Hints))
	for i, hint := range meta.Hints {
		fmt.Printf("  %d. %s\n", i+1, hint)
	}

	switch a := act.(type) {
	case *domain.SelectCorrect:
		fmt.Printf("Question:     %s\n", a.Question)
		fmt.Printf("Choices:      %d\n", len(a.Choices))
	case *domain.DragMatch:
		fmt.Printf("Pairs:        %d\n", len(a.Items))
	case *domain.Memory:
		fmt.Printf("Cards:        %d\n", len(a.Cards))
	case *domain.RobotGrid:
		fmt.Printf("Grid:         %dx%d\n", a.Grid.Rows, a.Grid.Cols)
		fmt.Printf("Toolbox:      %v\n", a.Toolbox)
	}
	return nil
}

func activityValidate(path string) error {
	_, err := activity.LoadFile(path)
	if err == nil {
		fmt.Printf("✓ %s is valid\n", path)
		return nil
	}

	var schemaErr *activity.SchemaError
	if errors.As(err, &schemaErr) {
		fmt.Printf("✗ %s failed validation (template %s):\n", path, schemaErr.Template)
		for _, issue := range schemaErr.Issues {
			fmt.Printf("  %s: %s\n", issue.Path, issue.Message)
		}
		return fmt.Errorf("%d issue(s)", len(schemaErr.Issues))
	}
	return err
}
