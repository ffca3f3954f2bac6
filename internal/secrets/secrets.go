// Package secrets resolves the different ways a configuration value can
// name a secret without embedding it directly: a literal string, an
// environment variable, an OS keychain entry, or the output of a command.
package secrets

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/zalando/go-keyring"
)

// keyringService is the service name every keychain-backed secret is stored
// under, matching the convention the original Rust implementation's
// keyring helper used for its own service name.
const keyringService = "pctxgo"

// Ref is a secret reference as it appears in configuration: exactly one of
// its fields should be set.
type Ref struct {
	Literal  string `yaml:"literal,omitempty" json:"literal,omitempty"`
	Env      string `yaml:"env,omitempty" json:"env,omitempty"`
	Keychain string `yaml:"keychain,omitempty" json:"keychain,omitempty"`
	Command  string `yaml:"command,omitempty" json:"command,omitempty"`
}

// Resolve returns the secret value ref points to.
func Resolve(ref Ref) (string, error) {
	switch {
	case ref.Literal != "":
		return ref.Literal, nil
	case ref.Env != "":
		v, ok := os.LookupEnv(ref.Env)
		if !ok {
			return "", fmt.Errorf("secrets: environment variable %q is not set", ref.Env)
		}
		return v, nil
	case ref.Keychain != "":
		v, err := keyring.Get(keyringService, ref.Keychain)
		if err != nil {
			return "", fmt.Errorf("secrets: keychain entry %q: %w", ref.Keychain, err)
		}
		return v, nil
	case ref.Command != "":
		return runCommand(ref.Command)
	default:
		return "", fmt.Errorf("secrets: empty secret reference")
	}
}

func runCommand(command string) (string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", fmt.Errorf("secrets: empty command")
	}
	cmd := exec.Command(fields[0], fields[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("secrets: command %q failed: %w", command, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Store saves value under key in the OS keychain, for tooling that
// provisions secrets rather than just reading them.
func Store(key, value string) error {
	if err := keyring.Set(keyringService, key, value); err != nil {
		return fmt.Errorf("secrets: storing keychain entry %q: %w", key, err)
	}
	return nil
}
