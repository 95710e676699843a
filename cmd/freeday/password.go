package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dukerupert/freeday/internal/gate"
	"golang.org/x/term"
)

// readPassword prompts on stderr and reads without echo from a terminal, or
// reads one line when stdin is piped.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// readLine reads up to and excluding the next newline one byte at a time, so
// nothing past it is consumed from r.
func readLine(r io.Reader) (string, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			line = append(line, buf[0])
		}
		if err == io.EOF && len(line) > 0 {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimRight(string(line), "\r"), nil
}

// runHashPassword prints an Argon2id hash to put into FREEDAY_PASSWORD.
func runHashPassword(args []string) error {
	if len(args) > 0 {
		return errors.New("usage: freeday hash-password")
	}

	password, err := readPassword("Enter password:   ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read confirmation: %w", err)
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}
	}

	hash, err := gate.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Printf("FREEDAY_PASSWORD='%s'\n", hash)
	return nil
}
