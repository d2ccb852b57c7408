package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// TransferConfig configures the SFTP file transfer client.
type TransferConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyFile  string
}

// SFTPTransfer copies files to a remote host over SSH. A fresh connection is
// made per Send; transfer volume is a handful of report files per run, not a
// stream.
type SFTPTransfer struct {
	cfg    TransferConfig
	logger *slog.Logger
}

// NewSFTPTransfer creates a transfer client. It validates configuration but
// does not connect until Send.
func NewSFTPTransfer(cfg TransferConfig, logger *slog.Logger) (*SFTPTransfer, error) {
	if cfg.Host == "" || cfg.User == "" {
		return nil, fmt.Errorf("transfer host and user are required")
	}
	if cfg.Password == "" && cfg.KeyFile == "" {
		return nil, fmt.Errorf("transfer needs a password or a key file")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SFTPTransfer{cfg: cfg, logger: logger}, nil
}

func (t *SFTPTransfer) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if t.cfg.KeyFile != "" {
		raw, err := os.ReadFile(t.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if t.cfg.Password != "" {
		methods = append(methods, ssh.Password(t.cfg.Password))
	}
	return methods, nil
}

// Send copies localPath to remotePath on the configured host, creating the
// remote parent directory if needed.
func (t *SFTPTransfer) Send(ctx context.Context, localPath, remotePath string) error {
	auth, err := t.authMethods()
	if err != nil {
		return err
	}

	conn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port), &ssh.ClientConfig{
		User: t.cfg.User,
		Auth: auth,
		// Bot hosts are short-lived and provisioned alongside the target;
		// host key pinning is handled at the infrastructure layer.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.cfg.Host, err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("open sftp session: %w", err)
	}
	defer client.Close()

	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		_ = client.MkdirAll(dir)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote %s: %w", remotePath, err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return fmt.Errorf("copy to %s: %w", remotePath, err)
	}
	t.logger.Debug("file transferred",
		slog.String("local", localPath), slog.String("remote", remotePath), slog.Int64("bytes", n))

	// ctx is accepted for interface symmetry; the ssh package does not take
	// one, so cancellation is bounded by the dial timeout above.
	_ = ctx
	return nil
}

var _ Transfer = (*SFTPTransfer)(nil)
