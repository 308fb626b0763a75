package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"budget-tracker/internal/auth"
	"budget-tracker/internal/logging"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type credentials struct {
	username string
	password string
}

func (c *credentials) flags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "user", "u", "", "username")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "password (optional, will prompt if omitted)")
}

// resolve prompts for the password when the flag was omitted.
func (c *credentials) resolve(cmd *cobra.Command, stdin io.Reader) error {
	if err := requireFlags(cmd, "user"); err != nil {
		return err
	}

	if c.password == "" {
		out := cmd.OutOrStdout()
		fmt.Fprint(out, "Password: ")
		var err error
		c.password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(out) // Print newline after password input
	}

	if strings.TrimSpace(c.password) == "" {
		return errors.New("password cannot be empty")
	}
	return nil
}

func (a *app) registerCmd() *cobra.Command {
	var c credentials
	cmd := &cobra.Command{
		Use:   "register",
		Short: "create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.resolve(cmd, a.stdin); err != nil {
				return err
			}
			return a.withLedger("register", func(l *ledger, logData *logging.LogData) error {
				account, err := auth.New(l.db, auth.WithLogger(a.log)).Register(c.username, c.password)
				if err != nil {
					return fmt.Errorf("failed to create account: %w", err)
				}
				logData.AddData("account_id", account.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Account %s created successfully with ID %d\n", account.Username, account.ID)
				return nil
			})
		},
	}
	c.flags(cmd)
	return cmd
}

var errInvalidCredentials = errors.New("invalid username or password")

func (a *app) loginCmd() *cobra.Command {
	var c credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "check the password of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.resolve(cmd, a.stdin); err != nil {
				return err
			}
			return a.withLedger("login", func(l *ledger, logData *logging.LogData) error {
				ok, err := auth.New(l.db, auth.WithLogger(a.log)).Login(c.username, c.password)
				if err != nil {
					return err
				}
				logData.AddData("success", ok)
				if !ok {
					return errInvalidCredentials
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Login successful.")
				return nil
			})
		},
	}
	c.flags(cmd)
	return cmd
}

func readPassword(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
