package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/jLantxa/backup/pkg/backend"
	"github.com/jLantxa/backup/pkg/backend/localfs"
	"github.com/jLantxa/backup/pkg/backend/sftpbackend"
	"github.com/jLantxa/backup/pkg/backuperrors"
	"github.com/jLantxa/backup/pkg/repository"
)

// exitCodeFor maps an error's backuperrors.Kind to a process exit
// status, mirroring the convention the corpus's backup tools document
// (repository missing, password wrong, etc.) so scripts can branch on it.
func exitCodeFor(err error) int {
	switch {
	case backuperrors.Is(err, backuperrors.KindNotFound):
		return 10
	case backuperrors.Is(err, backuperrors.KindDecrypt):
		return 12
	default:
		return 1
	}
}

func openBackend(gopts *globalOptions) (backend.Backend, error) {
	if gopts.RepoURL == "" {
		return nil, fmt.Errorf("no repository specified, use --repo or $BACKUP_REPOSITORY")
	}
	switch gopts.Backend {
	case "", "local":
		return localfs.New(gopts.RepoURL), nil
	case "sftp":
		cfg := sftpbackend.Config{
			Addr:            gopts.RepoURL,
			User:            gopts.SFTPUser,
			Password:        gopts.SFTPPass,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		}
		if gopts.SFTPKey != "" {
			pem, err := os.ReadFile(gopts.SFTPKey)
			if err != nil {
				return nil, fmt.Errorf("read sftp key: %w", err)
			}
			cfg.PrivateKeyPEM = pem
		}
		return sftpbackend.New("/", cfg)
	default:
		return nil, fmt.Errorf("unknown backend %q", gopts.Backend)
	}
}

// promptPassword implements repository.PasswordPrompter by reading a
// line from the controlling terminal with echo disabled.
func promptPassword(attempt int) (string, error) {
	prompt := "enter repository password: "
	if attempt > 1 {
		prompt = fmt.Sprintf("enter repository password (attempt %d): ", attempt)
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// repoConfig builds a repository.Config from the global performance
// flags, letting the zero value (unset flag) fall through to
// Config.withDefaults().
func repoConfig(gopts *globalOptions) repository.Config {
	return repository.Config{
		ReadConcurrency:  gopts.ReadConcurrency,
		WriteConcurrency: gopts.WriteConcurrency,
		PackSize:         int64(gopts.PackSizeMiB) << 20,
	}
}

func openRepository(ctx context.Context, gopts *globalOptions, cfg repository.Config) (*repository.Repository, error) {
	b, err := openBackend(gopts)
	if err != nil {
		return nil, err
	}
	return repository.TryOpen(ctx, b, cfg, gopts.Password, gopts.KeyFile, promptPassword)
}

func initRepository(ctx context.Context, gopts *globalOptions, cfg repository.Config) (*repository.Repository, error) {
	b, err := openBackend(gopts)
	if err != nil {
		return nil, err
	}
	password := gopts.Password
	if password == "" {
		password, err = promptPassword(1)
		if err != nil {
			return nil, err
		}
	}
	return repository.Init(ctx, b, cfg, password, gopts.KeyFile)
}
