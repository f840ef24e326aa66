package main

import (
	"context"
	"fmt"

	"github.com/fentz26/planforge/internal/environment"
	"github.com/spf13/cobra"
)

var inviteCmd = &cobra.Command{
	Use:   "invite [project-id]",
	Short: "Create an invitation token for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runInviteCreate,
}

var inviteAcceptCmd = &cobra.Command{
	Use:   "accept [token]",
	Short: "Accept an invitation token",
	Args:  cobra.ExactArgs(1),
	RunE:  runInviteAccept,
}

func init() {
	inviteCmd.AddCommand(inviteAcceptCmd)
}

func runInviteCreate(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	inv, err := newClient().CreateInvitation(context.Background(), args[0], user.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Invitation token: %s\n\n", inv.Token)
	fmt.Println("The collaborator can accept it with either:")
	fmt.Printf("  planforge tui --invite %s\n", inv.Token)
	fmt.Printf("  %s=%s planforge tui\n", environment.InviteEnv, inv.Token)
	return nil
}

func runInviteAccept(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	inv, err := newClient().AcceptInvitation(context.Background(), args[0], user.ID)
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}
	fmt.Printf("Joined project %s\n", inv.ProjectID)
	return nil
}
