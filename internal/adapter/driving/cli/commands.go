package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/teampanel/internal/domain/model"
)

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := a.login(cmd)
			if err != nil {
				return err
			}
			s, _ := mgr.CurrentSession()

			out := cmd.OutOrStdout()
			st := newStyles(out)

			member := s.MemberID
			if member == "" {
				member = st.dim.Render("-")
			}
			fmt.Fprintf(out, "%s %s\n", st.bold.Render("username:"), s.Username)
			fmt.Fprintf(out, "%s     %s\n", st.bold.Render("role:"), s.Role)
			fmt.Fprintf(out, "%s   %s\n", st.bold.Render("member:"), member)
			return nil
		},
	}
}

func (a *app) usersCommand() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts (admin only)",
		Long: `List and change the accounts in the credential store.

Examples:
  teamctl users list
  teamctl users add carol --initial-password welcome --role user --member-id 7
  teamctl users reset-password carol
  teamctl users set-role carol admin`,
		RunE: requireSubcommand,
	}

	users.AddCommand(a.usersListCommand())
	users.AddCommand(a.usersAddCommand())
	users.AddCommand(a.usersResetPasswordCommand())
	users.AddCommand(a.usersSetRoleCommand())
	return users
}

func (a *app) usersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all accounts",
		Long: `Show every account with its role, team member link and whether it still
uses the default password. Prints nothing unless logged in as an admin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := a.login(cmd)
			if err != nil {
				return err
			}

			creds := mgr.ListCredentials()
			if len(creds) == 0 {
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "USERNAME\tROLE\tMEMBER\tDEFAULT PASSWORD")
			for _, c := range creds {
				member := c.MemberID
				if member == "" {
					member = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Username, c.Role, member, yesNo(c.IsDefaultPassword))
			}
			return tw.Flush()
		},
	}
}

func (a *app) usersAddCommand() *cobra.Command {
	var (
		initialPassword string
		role            string
		memberID        string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Add an account",
		Long: `Add an account. The new account must change its initial password on
first login.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.login(cmd)
			if err != nil {
				return err
			}
			username := args[0]
			if err := mgr.AddCredential(cmd.Context(), username, initialPassword, model.Role(role), memberID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", username, role)
			return nil
		},
	}

	cmd.Flags().StringVar(&initialPassword, "initial-password", "", "Initial password for the account")
	cmd.Flags().StringVar(&role, "role", string(model.RoleUser), "Role: admin or user")
	cmd.Flags().StringVar(&memberID, "member-id", "", "Team member the account belongs to")
	_ = cmd.MarkFlagRequired("initial-password")
	return cmd
}

func (a *app) usersResetPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Reset an account to the default password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.login(cmd)
			if err != nil {
				return err
			}
			if err := mgr.ResetUserPassword(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password of %s reset to the default\n", args[0])
			return nil
		},
	}
}

func (a *app) usersSetRoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <username> <admin|user>",
		Short: "Change the role of an account",
		Long: `Change the role of an account. The main admin account cannot be changed.
Demoting yourself takes effect immediately.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.login(cmd)
			if err != nil {
				return err
			}
			if err := mgr.UpdateRole(cmd.Context(), args[0], model.Role(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], args[1])
			return nil
		},
	}
}

func (a *app) passwdCommand() *cobra.Command {
	var newPassword string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your own password",
		Long: `Change the password of the logged-in account. --password is the current
password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := a.login(cmd)
			if err != nil {
				return err
			}
			if err := mgr.ChangePassword(cmd.Context(), a.flags.password, newPassword); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password changed")
			return nil
		},
	}

	cmd.Flags().StringVar(&newPassword, "new", "", "New password")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
