package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fentz26/planforge/internal/client"
	"github.com/fentz26/planforge/internal/controller"
	"github.com/fentz26/planforge/internal/models"
	"github.com/spf13/cobra"
)

var (
	generateGoal string
	generateSave bool
	generateJSON bool
)

var generateCmd = &cobra.Command{
	Use:   "generate --goal <goal>",
	Short: "Generate a project plan without the TUI",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateGoal, "goal", "", "What the project should achieve (or pass it as arguments)")
	generateCmd.Flags().BoolVar(&generateSave, "save", false, "Save the plan as a project on the backend")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Print the plan as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	goal := strings.TrimSpace(generateGoal)
	if goal == "" {
		goal = strings.TrimSpace(strings.Join(args, " "))
	}
	if goal == "" {
		return errors.New("goal cannot be empty")
	}
	if cfg.Gemini.APIKey == "" {
		return errors.New("no Gemini API key (set GEMINI_API_KEY or gemini.api_key in the config)")
	}

	log, closer, err := newLogger("planforge", cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	var (
		user *models.User
		api  *client.Client
	)
	if generateSave {
		if user, err = requireUser(); err != nil {
			return fmt.Errorf("--save: %w", err)
		}
		api = newClient()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d := controller.NewDriver(controller.NewReducer(), newRunner(newGenerator(), api, nil, log), controller.NewState())
	d.Dispatch(ctx, controller.Started{User: user})

	if !generateJSON {
		fmt.Fprintln(os.Stderr, "Generating plan...")
	}
	s := d.Dispatch(ctx, controller.SubmitGoal{Goal: goal})
	if s.Error != "" && len(s.Tasks) == 0 {
		return errors.New(s.Error)
	}

	if generateJSON {
		if err := printJSON(s.Tasks); err != nil {
			return err
		}
	} else {
		printTasks(s.Tasks)
	}

	if s.Error != "" {
		return errors.New(s.Error)
	}
	if s.CurrentProject != nil {
		fmt.Fprintf(os.Stderr, "Saved as project %s\n", s.CurrentProject.ID)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTasks(tasks []models.Task) {
	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}
	for i, t := range tasks {
		fmt.Printf("%2d. [%s] %s\n", i+1, t.Status, t.Title)
		if t.Description != "" {
			fmt.Printf("    %s\n", t.Description)
		}
		if len(t.Dependencies) > 0 {
			deps := make([]string, 0, len(t.Dependencies))
			for _, id := range t.Dependencies {
				if title, ok := titles[id]; ok {
					deps = append(deps, title)
				} else {
					deps = append(deps, id)
				}
			}
			fmt.Printf("    after: %s\n", strings.Join(deps, ", "))
		}
	}
}
