package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// passwordArg returns the value of the named flag or, when it is empty,
// prompts for it. A terminal on stdin is read without echo; anything else
// is read as one line.
func passwordArg(cmd *cobra.Command, flag, prompt string) (string, error) {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v, nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", oops.Code("INPUT_FAILED").Wrap(err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", oops.Code("INPUT_FAILED").With("flag", flag).Errorf("no --%s given and none on stdin", flag)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
