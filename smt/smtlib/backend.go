package smtlib

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/signadot/go-theorem/debug"
	"github.com/signadot/go-theorem/smt"
)

const DefaultCommand = "z3"

var DefaultArgs = []string{"-in", "-smt2"}

// Backend runs one solver process per session and talks SMT-LIB2 with it
// over stdin and stdout.
type Backend struct {
	command string
	args    []string
	timeout time.Duration
	log     *slog.Logger
}

type Option func(*Backend)

// WithCommand sets the solver command line. The solver must read SMT-LIB2
// from stdin.
func WithCommand(command string, args ...string) Option {
	return func(b *Backend) {
		b.command = command
		b.args = args
	}
}

// WithTimeout sets the solver's per-check timeout (the :timeout option).
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) {
		b.timeout = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		b.log = l
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{
		command: DefaultCommand,
		args:    DefaultArgs,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Name() string {
	return "smtlib:" + b.command
}

func (b *Backend) NewSolver(ctx context.Context) (smt.Solver, error) {
	return b.start(ctx)
}

func (b *Backend) NewOptimizer(ctx context.Context) (smt.Optimizer, error) {
	return b.start(ctx)
}

// Error is an error reported by the solver process for a command.
type Error struct {
	Command string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("solver error on %s: %s", e.Command, e.Message)
}

type session struct {
	cmd    *exec.Cmd
	in     io.WriteCloser
	out    *bufio.Reader
	stderr bytes.Buffer
	log    *slog.Logger
	sorts  map[string]smt.Sort
	sat    bool
	killed bool
	closed bool
}

// waitDelay bounds how long Close waits for output of a killed solver whose
// children still hold its pipes.
const waitDelay = time.Second

func (b *Backend) start(ctx context.Context) (*session, error) {
	s := &session{log: b.log, sorts: map[string]smt.Sort{}}
	s.cmd = exec.CommandContext(ctx, b.command, b.args...)
	s.cmd.Stderr = &s.stderr
	s.cmd.WaitDelay = waitDelay
	in, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	out, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("unable to start %s: %w", b.command, err)
	}
	s.in, s.out = in, bufio.NewReader(out)
	init := []string{"(set-option :produce-models true)"}
	if b.timeout > 0 {
		init = append(init, fmt.Sprintf("(set-option :timeout %d)", b.timeout.Milliseconds()))
	}
	for _, c := range init {
		if err := s.send(c); err != nil {
			s.Close()
			return nil, err
		}
	}
	s.log.Debug("solver started", "command", b.command, "pid", s.cmd.Process.Pid)
	return s, nil
}

const syncMarker = "theorem-sync"

func (s *session) write(command string) error {
	if s.closed || s.killed {
		return fmt.Errorf("smtlib session closed")
	}
	if debug.SMTLIB() {
		debug.Logf("smtlib> %s\n", command)
	}
	if _, err := io.WriteString(s.in, command+"\n"); err != nil {
		return s.procErr(err)
	}
	return nil
}

// send issues a command that produces no output on success, followed by an
// echo marker, and reports any error printed before the marker.
func (s *session) send(command string) error {
	if err := s.write(command); err != nil {
		return err
	}
	if err := s.write(`(echo "` + syncMarker + `")`); err != nil {
		return err
	}
	var solverErr error
	for {
		x, err := readSexp(s.out)
		if err != nil {
			return s.procErr(err)
		}
		if debug.SMTLIB() {
			debug.Logf("smtlib< %s\n", x)
		}
		if !x.isList && x.atom == syncMarker {
			return solverErr
		}
		if x.head() == "error" && solverErr == nil {
			solverErr = &Error{Command: command, Message: errorMessage(x)}
		}
	}
}

func errorMessage(x *sexp) string {
	if len(x.list) > 1 {
		return x.list[1].atom
	}
	return x.String()
}

func (s *session) procErr(err error) error {
	if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
		return fmt.Errorf("solver process: %w: %s", err, msg)
	}
	return fmt.Errorf("solver process: %w", err)
}

func (s *session) Declare(name string, sort smt.Sort) (*smt.Expr, error) {
	if _, ok := s.sorts[name]; ok {
		return nil, fmt.Errorf("%s already declared", name)
	}
	v := smt.Var(name, sort)
	if err := s.send(smt.Declaration(v)); err != nil {
		return nil, err
	}
	s.sorts[name] = sort
	return v, nil
}

func (s *session) Assert(e *smt.Expr) error {
	s.sat = false
	return s.send("(assert " + e.String() + ")")
}

func (s *session) Minimize(e *smt.Expr) error {
	return s.send("(minimize " + e.String() + ")")
}

func (s *session) Maximize(e *smt.Expr) error {
	return s.send("(maximize " + e.String() + ")")
}

type result struct {
	x   *sexp
	err error
}

// Check waits for the solver's answer; when ctx is done first the process
// is killed.
func (s *session) Check(ctx context.Context) (smt.Status, error) {
	s.sat = false
	if err := s.write("(check-sat)"); err != nil {
		return smt.Unknown, err
	}
	done := make(chan result, 1)
	go func() {
		x, err := readSexp(s.out)
		done <- result{x, err}
	}()
	var res result
	select {
	case <-ctx.Done():
		s.cmd.Process.Kill()
		s.killed = true
		return smt.Unknown, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return smt.Unknown, s.procErr(res.err)
	}
	if debug.SMTLIB() {
		debug.Logf("smtlib< %s\n", res.x)
	}
	switch res.x.atom {
	case "sat":
		s.sat = true
		return smt.Sat, nil
	case "unsat":
		return smt.Unsat, nil
	case "unknown":
		return smt.Unknown, nil
	}
	if res.x.head() == "error" {
		return smt.Unknown, &Error{Command: "(check-sat)", Message: errorMessage(res.x)}
	}
	return smt.Unknown, fmt.Errorf("unexpected check-sat response %s", res.x)
}

func (s *session) Model() (smt.Model, error) {
	if !s.sat {
		return nil, smt.ErrNoModel
	}
	return &model{s: s}, nil
}

type model struct {
	s *session
}

// Eval asks the solver for the value of e with get-value.
func (m *model) Eval(e *smt.Expr) (smt.Value, error) {
	s := m.s
	if e.Sort().IsArray() {
		return smt.Value{}, fmt.Errorf("cannot evaluate array %s", e)
	}
	command := "(get-value (" + e.String() + "))"
	if err := s.write(command); err != nil {
		return smt.Value{}, err
	}
	x, err := readSexp(s.out)
	if err != nil {
		return smt.Value{}, s.procErr(err)
	}
	if debug.SMTLIB() {
		debug.Logf("smtlib< %s\n", x)
	}
	if x.head() == "error" {
		return smt.Value{}, &Error{Command: command, Message: errorMessage(x)}
	}
	if !x.isList || len(x.list) != 1 || !x.list[0].isList || len(x.list[0].list) != 2 {
		return smt.Value{}, fmt.Errorf("unexpected get-value response %s", x)
	}
	return value(x.list[0].list[1], e.Sort().Kind)
}

// Close ends the session and reaps the solver process, also after Check
// killed it.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	if !s.killed {
		s.write("(exit)")
	}
	s.closed = true
	s.in.Close()
	err := s.cmd.Wait()
	s.log.Debug("solver exited", "error", err)
	return nil
}
