// Command parkgate-token mints an operator bearer token for the admin
// endpoints. The signing secret is read from the terminal, or from
// PARKGATE_JWT_SECRET when stdin is not a terminal.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/BrandonDHaskell/Parkgate/server/internal/auth"
)

func main() {
	operator := flag.String("operator", "", "operator name embedded in the token")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if *operator == "" {
		fmt.Fprintln(os.Stderr, "-operator is required")
		os.Exit(2)
	}

	secret, err := readSecret()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read secret: %v\n", err)
		os.Exit(1)
	}

	tok, err := auth.GenerateToken(*operator, secret, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

func readSecret() ([]byte, error) {
	if v := os.Getenv("PARKGATE_JWT_SECRET"); v != "" {
		return []byte(v), nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "JWT secret: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return b, err
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	return []byte(strings.TrimSpace(line)), nil
}
