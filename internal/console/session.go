// SPDX-License-Identifier: MPL-2.0

package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"golang.org/x/term"

	"github.com/modhost/modhost/internal/render"
)

const prompt = "modhost> "

// Exit codes of single-command sessions.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func (s *Server) sessionMiddleware() wish.Middleware {
	return func(_ ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			if args := sess.Command(); len(args) > 0 {
				_ = sess.Exit(s.runCommand(sess, args)) //nolint:errcheck // session is closing
				return
			}
			s.runInteractive(sess)
			_ = sess.Exit(exitOK) //nolint:errcheck // session is closing
		}
	}
}

// runCommand executes one command and returns the session exit code.
func (s *Server) runCommand(sess ssh.Session, args []string) int {
	s.logger.Info("console command", "user", sess.User(), "command", strings.Join(args, " "))
	err := Execute(sess.Context(), s.ops, sess, args)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(sess.Stderr(), "error: %v\n", err)
	if errors.Is(err, ErrUsage) || errors.Is(err, ErrUnknownCommand) {
		return exitUsage
	}
	return exitFailed
}

// runInteractive reads commands until exit or EOF. PTY sessions get line
// editing and echo from x/term; plain sessions read newline-separated
// commands.
func (s *Server) runInteractive(sess ssh.Session) {
	var (
		out      io.Writer = sess
		readLine func() (string, error)
	)
	if _, _, isPty := sess.Pty(); isPty {
		t := term.NewTerminal(sess, prompt)
		out, readLine = t, t.ReadLine
	} else {
		scanner := bufio.NewScanner(sess)
		readLine = func() (string, error) {
			fmt.Fprint(sess, prompt)
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return "", err
				}
				return "", io.EOF
			}
			return scanner.Text(), nil
		}
	}

	s.logger.Info("console session opened", "user", sess.User())
	defer s.logger.Info("console session closed", "user", sess.User())

	fmt.Fprintln(out, render.TitleStyle.Render("modhost console")+" "+render.SubtitleStyle.Render("type help for commands"))
	for {
		line, err := readLine()
		if err != nil {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if cmd := strings.ToLower(args[0]); cmd == "exit" || cmd == "quit" {
			return
		}
		s.logger.Debug("console command", "user", sess.User(), "command", line)
		if err := Execute(sess.Context(), s.ops, out, args); err != nil {
			fmt.Fprintf(out, "%s %v\n", render.ErrorStyle.Render("error:"), err)
		}
	}
}
