//go:build e2e

package e2e

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/vladimirvivien/gexe/exec"
)

const binaryName = "fleet-telemetry"

func runCommand(command string, env []string) error {
	stdout := bytes.NewBufferString("")
	stderr := bytes.NewBufferString("")

	proc := exec.NewProc(command)
	proc.Command().Stdout = stdout
	proc.Command().Stderr = stderr

	if len(env) > 0 {
		proc.Command().Env = env
	}

	proc.Start().Wait()

	err := proc.Err()
	if err != nil {
		sOutput, _ := io.ReadAll(stdout)
		sErr, _ := io.ReadAll(stderr)

		return fmt.Errorf("failed to run command (%w): stdout:%s stderr:%s", err, string(sOutput), string(sErr))
	}

	return nil
}

// BuildBinary compiles the command into dir and returns its path.
func BuildBinary(dir string) (string, error) {
	ret := filepath.Join(dir, binaryName)

	err := runCommand(fmt.Sprintf("go build -o %s ../../cmd/%s", ret, binaryName), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build %s: %w", binaryName, err)
	}

	return ret, nil
}

// Process is one running instance of the binary.
type Process struct {
	proc   *exec.Proc
	output *bytes.Buffer
}

func StartProcess(binary string, env map[string]string) (*Process, error) {
	output := bytes.NewBufferString("")

	proc := exec.NewProc(binary + " serve")
	proc.Command().Stdout = output
	proc.Command().Stderr = output
	proc.Command().Env = os.Environ()

	for key, value := range env {
		proc.Command().Env = append(proc.Command().Env, fmt.Sprintf("%s=%s", key, value))
	}

	proc.Start()

	err := proc.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", binary, err)
	}

	return &Process{proc: proc, output: output}, nil
}

// Stop sends a termination signal and waits for the process to exit.
func (p *Process) Stop() error {
	process := p.proc.Command().Process
	if process == nil {
		return nil
	}

	err := process.Signal(syscall.SIGTERM)
	if err != nil {
		return fmt.Errorf("failed to signal process: %w", err)
	}

	p.proc.Wait()

	return nil
}

func (p *Process) Output() string {
	return p.output.String()
}
