package main

import (
	"context"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/darasa/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrSvc   user.ServiceInterface
	validate *validator.Validate
	// ensureIndexes is nil when the configured database has no indexes to manage.
	ensureIndexes func(ctx context.Context) error
}

func (cli *commandLine) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Darasa administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}

	var addUname, addEmail, addRole string
	addUserCmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or reset the password of an existing one. The password is prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addUname == "" || addEmail == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), addUname, addEmail, addRole, pwd)
			if err != nil {
				return err
			}
			cmd.Printf("user %q (%s) saved\n", usr.Username, usr.Role)
			return nil
		},
	}
	addUserCmd.Flags().StringVarP(&addUname, "username", "u", "", "the user's username")
	addUserCmd.Flags().StringVarP(&addEmail, "email", "e", "", "the user's email")
	addUserCmd.Flags().StringVarP(&addRole, "role", "r", user.RoleTeacher, "TEACHER or STUDENT")

	var resetUname string
	resetPasswordCmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The password is prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if resetUname == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.resetPassword(cmd.Context(), resetUname, pwd)
		},
	}
	resetPasswordCmd.Flags().StringVarP(&resetUname, "username", "u", "", "the user's username or email")

	ensureIndexesCmd := &cobra.Command{
		Use:   "ensureindexes",
		Short: "Create the database indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.ensureIndexes == nil {
				cmd.Println("nothing to do for this database engine")
				return nil
			}
			if err := cli.ensureIndexes(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("indexes ensured")
			return nil
		},
	}

	rootCmd.AddCommand(addUserCmd, resetPasswordCmd, ensureIndexesCmd)
	return rootCmd
}

func promptPassword(cmd *cobra.Command) (string, error) {
	cmd.Print("Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		_ = cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

// run executes the command line args, program name included.
func (cli *commandLine) run(ctx context.Context, args []string) error {
	rootCmd := cli.newRootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if err == errHelp {
			return err
		}
		return errors.Wrap(err, rootCmd.Name())
	}
	return nil
}
