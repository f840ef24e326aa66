package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fentz26/planforge/internal/client"
	"github.com/fentz26/planforge/internal/environment"
	"github.com/fentz26/planforge/internal/tui"
	"github.com/spf13/cobra"
)

var (
	inviteToken string
	noDaemon    bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive planner",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&inviteToken, "invite", "", "Invitation token to accept (defaults to $"+environment.InviteEnv+")")
	tuiCmd.Flags().BoolVar(&noDaemon, "no-daemon", false, "Do not start a local backend")
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The screen belongs to the TUI, so logs go to a file.
	logCfg := cfg.Log
	if logCfg.File == "" {
		logCfg.File = filepath.Join(filepath.Dir(cfg.DBPath), "tui.log")
	}
	log, closer, err := newLogger("planforge-tui", logCfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	api := newClient()
	if !isBackendRunning(api) {
		switch {
		case cfg.IsLocalBackend() && !noDaemon:
			fmt.Println("PlanForge backend not running. Starting background service...")
			if err := startDaemon(api); err != nil {
				return fmt.Errorf("failed to start backend: %w", err)
			}
		default:
			fmt.Fprintf(os.Stderr, "Warning: backend %s is unreachable; changes will not be saved.\n", cfg.Backend)
			log.WithField("backend", cfg.Backend).Warn("backend unreachable")
		}
	}

	mgr, err := newAuthManager()
	if err != nil {
		return err
	}
	env := environment.NewProcessEnv(inviteToken)

	app := tui.New(tui.Options{
		Runner:  newRunner(newGenerator(), api, env, log),
		Auth:    mgr,
		Env:     env,
		Log:     log,
		Backend: cfg.Backend,
	})
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isBackendRunning(api *client.Client) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	h, err := api.CheckHealth(ctx)
	return err == nil && h.OK
}

// startDaemon runs "planforge serve" detached and waits for it to answer.
func startDaemon(api *client.Client) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(exe, "serve", "--config", configPath)
	configureDaemonProc(cmd)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	fmt.Print("   Waiting for backend...")
	for i := 0; i < 20; i++ {
		if isBackendRunning(api) {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("backend started but not reachable at %s", cfg.Backend)
}
