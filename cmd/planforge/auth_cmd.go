package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the signed-in session",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through the browser",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newAuthManager()
		if err != nil {
			return err
		}
		if err := mgr.Logout(); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newAuthManager()
		if err != nil {
			return err
		}
		u := mgr.CurrentUser()
		if u == nil {
			fmt.Println("Not signed in")
			return nil
		}
		fmt.Printf("%s <%s> (%s)\n", u.Username, u.Email, u.ID)
		return nil
	},
}

func init() {
	authCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	mgr, err := newAuthManager()
	if err != nil {
		return err
	}
	if u := mgr.CurrentUser(); u != nil {
		fmt.Printf("Already signed in as %s\n", u.Username)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	fmt.Println("Opening browser to sign in...")
	sess, err := mgr.Login(ctx)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	fmt.Printf("Signed in as %s <%s>\n", sess.User.Username, sess.User.Email)
	return nil
}
