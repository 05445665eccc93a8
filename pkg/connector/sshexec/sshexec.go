// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package sshexec runs diagnostic shell commands on target hosts over
// SSH. It implements connector.ShellRunner for checks that need OS level
// signals such as disk usage or open file counts.
package sshexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/teradata-labs/pulse/pkg/connector"
	"github.com/teradata-labs/pulse/pkg/target"
)

// DefaultTimeout bounds a single remote command.
const DefaultTimeout = 20 * time.Second

// Config holds configuration for the SSH runner.
type Config struct {
	Hosts          []target.SSHHost
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	Logger         *zap.Logger
}

// Runner executes commands on the target's SSH topology. Connections are
// opened per command; health checks run a handful of shell probes per
// target, so a connection cache is not worth the state.
type Runner struct {
	cfg    Config
	logger *zap.Logger
}

// NewRunner builds a Runner with defaults applied.
func NewRunner(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = DefaultTimeout
	}
	return &Runner{cfg: cfg, logger: cfg.Logger}
}

// Shell runs a command on the named host and captures stdout, stderr,
// and the exit code. An empty host selects the first configured one. A
// nonzero exit is not an error; callers decide what it means.
func (r *Runner) Shell(ctx context.Context, cmd, host string) (*connector.ShellResult, error) {
	sh, err := r.resolve(host)
	if err != nil {
		return nil, err
	}

	clientCfg, cerr := r.clientConfig(sh)
	if cerr != nil {
		return nil, cerr
	}

	port := sh.Port
	if port == 0 {
		port = 22
	}
	addr := fmt.Sprintf("%s:%d", sh.Host, port)

	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, classify(err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, classify(err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	cmdCtx, cancel := context.WithTimeout(ctx, r.cfg.CommandTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-cmdCtx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return nil, connector.NewError(connector.KindTimeout,
			fmt.Sprintf("command timed out after %s", r.cfg.CommandTimeout), cmdCtx.Err())
	case err = <-done:
	}

	result := &connector.ShellResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.Exit = exitErr.ExitStatus()
			r.logger.Debug("remote command exited nonzero",
				zap.String("host", sh.Host),
				zap.Int("exit", result.Exit))
			return result, nil
		}
		return nil, classify(err)
	}
	return result, nil
}

func (r *Runner) resolve(host string) (target.SSHHost, error) {
	if len(r.cfg.Hosts) == 0 {
		return target.SSHHost{}, connector.NewError(connector.KindOther,
			"no ssh topology configured", nil)
	}
	if host == "" {
		return r.cfg.Hosts[0], nil
	}
	for _, h := range r.cfg.Hosts {
		if h.Host == host {
			return h, nil
		}
	}
	return target.SSHHost{}, connector.NewError(connector.KindOther,
		fmt.Sprintf("host %q is not in the ssh topology", host), nil)
}

func (r *Runner) clientConfig(host target.SSHHost) (*ssh.ClientConfig, *connector.Error) {
	var auth []ssh.AuthMethod
	if len(host.KeyPEM) > 0 {
		signer, err := ssh.ParsePrivateKey(host.KeyPEM)
		if err != nil {
			return nil, connector.NewError(connector.KindAuth, "parsing private key", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if host.Password != "" {
		auth = append(auth, ssh.Password(host.Password))
	}
	if len(auth) == 0 {
		return nil, connector.NewError(connector.KindAuth, "no ssh credentials configured", nil)
	}

	return &ssh.ClientConfig{
		User: host.User,
		Auth: auth,
		// Target hosts are operator supplied; host key pinning is not
		// part of the check contract.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         r.cfg.ConnectTimeout,
	}, nil
}

// classify maps ssh errors onto the closed taxonomy.
func classify(err error) *connector.Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "handshake failed") {
		return connector.NewError(connector.KindAuth, msg, err)
	}
	return connector.Classify(err)
}

// Ensure Runner implements connector.ShellRunner.
var _ connector.ShellRunner = (*Runner)(nil)
