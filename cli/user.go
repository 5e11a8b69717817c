package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"skmf.evalgo.org/resource"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "manage accounts",
	}
	cmd.AddCommand(newUserAddCmd(), newUserPasswdCmd(), newUserDisableCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "register an account",
		Long: `Registers an active account. The password is prompted for when stdin
is a terminal and read from the first line of stdin otherwise.`,
		Example: `  skmf user add admin --name Administrator
  echo "$PASSWORD" | skmf user add admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, bufio.NewReader(cmd.InOrStdin()), "Password: ")
			if err != nil {
				return err
			}
			return runApp(cmd, func(ctx context.Context, a *app) error {
				user, err := a.auth.Register(ctx, args[0], password, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Username, user.ID.Value)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newUserPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <username>",
		Short: "change an account password",
		Long: `Replaces the password of an account after checking the current one.
Both passwords are read like "user add" reads them, current first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			current, err := readPassword(cmd, reader, "Current password: ")
			if err != nil {
				return err
			}
			next, err := readPassword(cmd, reader, "New password: ")
			if err != nil {
				return err
			}
			return runApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.auth.ChangePassword(ctx, args[0], current, next); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password changed for %s\n", args[0])
				return nil
			})
		},
	}
}

func newUserDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <username>",
		Short: "disable an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, func(ctx context.Context, a *app) error {
				user, err := resource.LoadUser(ctx, a.client, args[0])
				if err != nil {
					return err
				}
				if user == nil {
					return fmt.Errorf("user %s is not registered", args[0])
				}
				if err := user.Deactivate(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "disabled %s\n", args[0])
				return nil
			})
		},
	}
}
