package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vbonduro/examportal/internal/auth"
	"github.com/vbonduro/examportal/internal/config"
)

func newHashPasswordCmd() *cobra.Command {
	var (
		overwrite      bool
		insecureUnmask bool
	)
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Create the admin auth file with an Argon2id password hash",
		Long: "Prompts for the admin username and password and writes AUTH_FILE\n" +
			"(default ./auth.secret) as username:argon2id-hash with mode 0400.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			return runHashPassword(in, config.Load().AuthFile, overwrite, insecureUnmask)
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing auth file")
	cmd.Flags().BoolVar(&insecureUnmask, "insecure-unmask-password", false, "Show the password while typing (INSECURE)")
	return cmd
}

func runHashPassword(in *bufio.Reader, authFile string, overwrite, unmask bool) error {
	fmt.Print("Enter username: ")
	username, err := readLine(in)
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if username == "" {
		return errors.New("username cannot be empty")
	}

	if unmask {
		fmt.Fprintln(os.Stderr, "WARNING: password will be visible on screen")
	}
	password, err := readPassword(in, "Enter password:   ", unmask)
	if err != nil {
		return err
	}
	confirm, err := readPassword(in, "Confirm password: ", unmask)
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	if err := auth.WriteSecretFile(authFile, username, password, overwrite); err != nil {
		return err
	}
	fmt.Printf("Wrote %s for user %q\n", authFile, username)
	return nil
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(in *bufio.Reader, prompt string, unmask bool) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if unmask || !term.IsTerminal(fd) {
		s, err := readLine(in)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return s, nil
	}
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
