package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sadopc/wellness/internal/gateway"
)

var (
	authEmail    string
	authPassword string
)

// loginCmd signs in and stores the credential
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the gateway",
	Long: `Signs in and stores the returned token so later commands and the
dashboard start authenticated. Prompts for anything not given as a flag.`,
	RunE: runLogin,
}

// registerCmd creates an account
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the gateway",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential",
	RunE:  runLogout,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email")
		c.Flags().StringVar(&authPassword, "password", "", "Account password (prompted if omitted)")
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	return authenticate(cmd, "Sign in", (*gateway.Client).Login)
}

func runRegister(cmd *cobra.Command, args []string) error {
	return authenticate(cmd, "Create account", (*gateway.Client).Register)
}

func authenticate(cmd *cobra.Command, title string, call func(*gateway.Client, context.Context, gateway.Credentials) (gateway.User, error)) error {
	creds, err := promptCredentials(title)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.GetAPITimeout())
	defer cancel()

	user, err := call(client, ctx, creds)
	if err != nil {
		return gatewayError(err, "Authentication failed")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Email)
	return nil
}

// promptCredentials fills in whatever the flags left empty.
func promptCredentials(title string) (gateway.Credentials, error) {
	email, password := strings.TrimSpace(authEmail), authPassword

	var fields []huh.Field
	if email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Value(&email).
			Validate(func(s string) error {
				if !strings.Contains(s, "@") {
					return errors.New("enter a valid email")
				}
				return nil
			}))
	}
	if password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&password))
	}
	if len(fields) > 0 {
		form := huh.NewForm(huh.NewGroup(fields...).Title(title))
		if err := form.Run(); err != nil {
			return gateway.Credentials{}, err
		}
	}
	return gateway.Credentials{Email: strings.TrimSpace(email), Password: password}, nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := client.Logout(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}
