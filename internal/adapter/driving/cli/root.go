// Package cli is the command-line driving adapter. Each invocation loads the
// credential collection from a store, logs in and runs one SessionManager
// operation.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/teampanel/internal/application"
	"github.com/ericfisherdev/teampanel/internal/config"
	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

const defaultStoreURL = "http://127.0.0.1:8443"

// StoreFactory opens the credential store served at url.
type StoreFactory func(url string) (driven.CredentialStore, error)

// Options wires the command tree to its environment.
type Options struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	NewStore StoreFactory
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	storeURL   string
	user       string
	password   string
	hashing    string
	bcryptCost int
}

type app struct {
	opts  Options
	flags globalFlags
	// envErr records an invalid environment default for a flag.
	envErr error
}

// NewRootCommand builds the teamctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "teamctl",
		Short: "Manage team panel accounts",
		Long: `Manage the accounts of the team panel credential store.

Every command logs in first with --user and --password (or TEAMPANEL_USER
and TEAMPANEL_PASSWORD). Account management commands need an admin login.

Examples:
  teamctl whoami --user bob --password secret
  teamctl users list --user admin --password secret
  teamctl users add carol --initial-password welcome --role user
  teamctl passwd --new n3w-secret`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          requireSubcommand,
	}
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// An explicit --bcrypt-cost replaces the bad environment value.
		if a.envErr != nil && !cmd.Flags().Changed("bcrypt-cost") {
			return a.envErr
		}
		return nil
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.storeURL, "store-url", envOr("TEAMPANEL_STORE_URL", defaultStoreURL), "Base URL of the credential store service")
	pf.StringVar(&a.flags.user, "user", os.Getenv("TEAMPANEL_USER"), "Username to log in with")
	pf.StringVar(&a.flags.password, "password", os.Getenv("TEAMPANEL_PASSWORD"), "Password to log in with")
	pf.StringVar(&a.flags.hashing, "hashing", envOr("TEAMPANEL_PASSWORD_HASHING", config.HashingBcrypt), "Password hashing scheme for new passwords (bcrypt or plaintext)")
	bcryptCost, err := envIntOr("TEAMPANEL_BCRYPT_COST", 10)
	a.envErr = err
	pf.IntVar(&a.flags.bcryptCost, "bcrypt-cost", bcryptCost, "bcrypt cost for new passwords")

	root.AddCommand(a.whoamiCommand())
	root.AddCommand(a.usersCommand())
	root.AddCommand(a.passwdCommand())

	return root
}

// Execute runs teamctl with args and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(opts.Stderr, "teamctl: "+errorMessage(err))
		return 1
	}
	return 0
}

// errorMessage shows manager failures by their user-facing message. Input
// errors and errors from outside the manager keep their detail.
func errorMessage(err error) string {
	switch application.ErrorKind(err) {
	case application.KindUnknown, application.KindInvalidInput:
		return err.Error()
	default:
		return application.UserMessage(err)
	}
}

func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires a subcommand, see '%s --help'", cmd.CommandPath())
	}
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
}

// login builds a SessionManager on the configured store, loads the collection
// and logs in with the global credentials.
func (a *app) login(cmd *cobra.Command) (*application.SessionManager, error) {
	if a.flags.user == "" {
		return nil, errors.New("--user is required (or set TEAMPANEL_USER)")
	}

	hasher, err := a.hasher()
	if err != nil {
		return nil, err
	}
	store, err := a.opts.NewStore(a.flags.storeURL)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	mgr := application.NewSessionManager(store, hasher, a.opts.Logger)
	if err := mgr.Load(cmd.Context()); err != nil {
		return nil, err
	}

	res, err := mgr.Login(cmd.Context(), a.flags.user, a.flags.password)
	if err != nil {
		return nil, err
	}
	if res.MustChangePassword {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintf(errOut, "%s %s still uses the default password; run 'teamctl passwd --new <password>'\n",
			newStyles(errOut).warning.Render("warning:"), res.Session.Username)
	}
	return mgr, nil
}

func (a *app) hasher() (driven.PasswordHasher, error) {
	switch a.flags.hashing {
	case config.HashingBcrypt:
		return application.NewBcryptHasher(a.flags.bcryptCost)
	case config.HashingPlaintext:
		return application.PlaintextHasher{}, nil
	default:
		return nil, fmt.Errorf("--hashing must be %s or %s; got %q", config.HashingBcrypt, config.HashingPlaintext, a.flags.hashing)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
