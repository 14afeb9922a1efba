package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pressmill/pressmill/internal/pool"
)

// Runner executes the extraction helper process once, feeding it HTML on
// stdin and returning captured stdout/stderr.
type Runner interface {
	Run(ctx context.Context, stdin string) (stdout, stderr string, err error)
}

// ExecRunner runs a real OS process.
type ExecRunner struct {
	Command string
	Args    []string
}

func (r ExecRunner) Run(ctx context.Context, stdin string) (string, string, error) {
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// subprocessReply is the single JSON line the helper prints on stdout.
type subprocessReply struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Subprocess runs the Python trafilatura helper, the highest-precision
// strategy in the ladder. Each call holds one slot on the subprocess pool.
type Subprocess struct {
	runner  Runner
	subPool *pool.Pool
}

// NewSubprocess builds the strategy. The pool bounds how many helper
// processes run at once.
func NewSubprocess(runner Runner, subPool *pool.Pool) *Subprocess {
	return &Subprocess{runner: runner, subPool: subPool}
}

func (*Subprocess) Name() string { return "trafilatura" }

func (s *Subprocess) Extract(ctx context.Context, html, _ string) (string, error) {
	var (
		stdout string
		stderr string
		runErr error
	)
	if err := s.subPool.Do(ctx, func() {
		stdout, stderr, runErr = s.runner.Run(ctx, html)
	}); err != nil {
		return "", err
	}

	// The helper reports extraction failures through its JSON reply, so a
	// non-zero exit only matters when the reply is unparseable.
	var reply subprocessReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &reply); err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return "", fmt.Errorf("trafilatura: %s", msg)
		}
		if runErr != nil {
			return "", fmt.Errorf("trafilatura: %w", runErr)
		}
		return "", fmt.Errorf("trafilatura: invalid helper output")
	}
	if !reply.OK || reply.Text == "" {
		if reply.Error != "" {
			return "", fmt.Errorf("trafilatura: %s", reply.Error)
		}
		return "", fmt.Errorf("trafilatura: no content")
	}
	return reply.Text, nil
}
