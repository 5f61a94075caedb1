// Package process commits intakes by running an allow-listed local command,
// for systems of record that are only reachable through a script or CLI.
//
// The command receives the action in INTAKE_ACTION ("submit" or "exists").
// On submit the form is written to stdin as JSON and the command prints the
// record id, either bare or as {"id": "..."}. On exists it receives
// INTAKE_TAX_ID and prints true or false. Exit code 2 means the record was
// rejected; any other failure means the system is unavailable.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/domain"
)

// ExitRejected is the exit status a command uses to refuse a record.
const ExitRejected = 2

// Config describes the command to run.
type Config struct {
	Command string            `mapstructure:"command" yaml:"command" json:"command"`
	Args    []string          `mapstructure:"args" yaml:"args" json:"args"`
	Env     map[string]string `mapstructure:"env" yaml:"env" json:"env"`
	Dir     string            `mapstructure:"dir" yaml:"dir" json:"dir"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// Gateway implements ports.SubmissionGateway and ports.CompanyDirectory.
type Gateway struct {
	cfg  Config
	keys domain.KeyExtractor
}

// NewGateway creates a Gateway. keys supplies INTAKE_TAX_ID and INTAKE_NAME on submit.
func NewGateway(cfg Config, keys domain.KeyExtractor) (*Gateway, error) {
	if cfg.Command == "" {
		return nil, errors.New("process gateway: command is required")
	}
	if keys == nil {
		keys = func(domain.FormState) domain.CompanyKeys { return domain.CompanyKeys{} }
	}
	return &Gateway{cfg: cfg, keys: keys}, nil
}

func (g *Gateway) run(ctx context.Context, stdin []byte, env ...string) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.cfg.Command, g.cfg.Args...)
	cmd.Dir = g.cfg.Dir
	cmd.WaitDelay = time.Second
	cmd.Env = cmd.Environ()
	for k, v := range g.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env, env...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == ExitRejected {
			return "", fmt.Errorf("%s: %w", msg, domain.ErrGatewayRejected)
		}
		return "", fmt.Errorf("%s: %v (%s): %w", g.cfg.Command, err, msg, domain.ErrGatewayUnavailable)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Submit runs the command with the form on stdin and returns the printed id.
func (g *Gateway) Submit(ctx context.Context, form domain.FormState) (string, error) {
	payload, err := json.Marshal(form)
	if err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}
	keys := g.keys(form)
	out, err := g.run(ctx, payload,
		"INTAKE_ACTION=submit",
		"INTAKE_TAX_ID="+keys.TaxID,
		"INTAKE_NAME="+keys.Name,
	)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(out, "{") {
		var reply struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(out), &reply); err != nil {
			return "", fmt.Errorf("decode reply: %v: %w", err, domain.ErrGatewayUnavailable)
		}
		out = reply.ID
	}
	if out == "" {
		return "", fmt.Errorf("%s printed no record id: %w", g.cfg.Command, domain.ErrGatewayUnavailable)
	}
	return out, nil
}

// TaxIDExists asks the command whether taxID is already registered.
func (g *Gateway) TaxIDExists(ctx context.Context, taxID string) (bool, error) {
	out, err := g.run(ctx, nil, "INTAKE_ACTION=exists", "INTAKE_TAX_ID="+taxID)
	if err != nil {
		return false, err
	}
	exists, err := strconv.ParseBool(out)
	if err != nil {
		return false, fmt.Errorf("%s: unexpected exists reply %q", g.cfg.Command, out)
	}
	return exists, nil
}
