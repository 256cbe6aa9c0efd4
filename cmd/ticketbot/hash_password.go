package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spec-kit/ticket-bot/internal/auth"
)

// hashPassword reads the admin password from the first line of in and prints
// the bcrypt hash for AUTH_ADMIN_PASSWORD_HASH. It returns the exit code.
func hashPassword(in io.Reader, out, errOut io.Writer, cost int) int {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		fmt.Fprintf(errOut, "read password: %v\n", err)
		return 1
	}
	hashed, err := auth.HashAdminPassword(line, cost)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintln(out, hashed)
	return 0
}
