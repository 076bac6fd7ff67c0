package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/franz/tutorial-bot/internal/util"
)

// Config describes how to reach the media host.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	KeyFile    string
	KnownHosts string
	Timeout    time.Duration
	Retry      *util.RetryConfig
}

func (c *Config) setDefaults() {
	if c.Port <= 0 {
		c.Port = 22
	}
	if c.User == "" {
		c.User = "root"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Retry == nil {
		c.Retry = util.RemoteRetryConfig()
	}
}

// Validate checks that the host is set.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: remote host is required", util.ErrInvalidConfig)
	}
	return nil
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Client is an SSH connection to the media host. It runs commands over SSH
// sessions and transfers files over SFTP on the same connection.
type Client struct {
	cfg  Config
	conn *ssh.Client

	sftpOnce sync.Once
	sftp     *sftp.Client
	sftpErr  error
}

// Dial connects to the host described by cfg, retrying transient failures.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientConfig, err := clientConfig(&cfg)
	if err != nil {
		return nil, err
	}

	conn, err := util.RetryWithBackoff(ctx, cfg.Retry, func() (*ssh.Client, error) {
		return dialContext(ctx, cfg.Addr(), clientConfig)
	}, "ssh dial "+cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("ssh: failed to connect to %s: %w", cfg.Addr(), err)
	}

	util.DebugLog("Connected to %s as %s", cfg.Addr(), cfg.User)
	return &Client{cfg: cfg, conn: conn}, nil
}

// dialContext performs the TCP dial and SSH handshake, giving up when ctx ends.
func dialContext(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: config.Timeout}
	netConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	type handshake struct {
		client *ssh.Client
		err    error
	}
	done := make(chan handshake, 1)
	go func() {
		c, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
		if err != nil {
			done <- handshake{err: err}
			return
		}
		done <- handshake{client: ssh.NewClient(c, chans, reqs)}
	}()

	select {
	case <-ctx.Done():
		netConn.Close()
		return nil, ctx.Err()
	case h := <-done:
		if h.err != nil {
			netConn.Close()
		}
		return h.client, h.err
	}
}

func clientConfig(cfg *Config) (*ssh.ClientConfig, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		hostKeyCallback, err = knownhosts.New(expandHome(cfg.KnownHosts))
		if err != nil {
			return nil, fmt.Errorf("ssh: failed to load known_hosts %s: %w", cfg.KnownHosts, err)
		}
	} else {
		util.WarnLog("remote.known_hosts not set, host key of %s will not be verified", cfg.Host)
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.Timeout,
	}, nil
}

// defaultKeyFiles are tried when neither a key file nor a password is configured.
var defaultKeyFiles = []string{"~/.ssh/id_ed25519", "~/.ssh/id_ecdsa", "~/.ssh/id_rsa"}

func authMethods(cfg *Config) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	keyFiles := defaultKeyFiles
	if cfg.KeyFile != "" {
		keyFiles = []string{cfg.KeyFile}
	}

	var signers []ssh.Signer
	for _, kf := range keyFiles {
		key, err := os.ReadFile(expandHome(kf))
		if err != nil {
			if cfg.KeyFile != "" {
				return nil, fmt.Errorf("ssh: failed to read private key: %w", err)
			}
			continue
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			if cfg.KeyFile != "" {
				return nil, fmt.Errorf("ssh: failed to parse private key: %w", err)
			}
			util.DebugLog("Skipping %s: %v", kf, err)
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no SSH authentication method available (set remote.key_file or remote.password)", util.ErrInvalidConfig)
	}
	return methods, nil
}

func expandHome(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// Run executes command in a new SSH session and captures its output.
// If ctx ends first the session is closed and ctx.Err() is returned.
func (c *Client) Run(ctx context.Context, command string) (*Result, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh: failed to open session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	util.DebugLog("ssh %s: %s", c.cfg.Host, command)

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		session.Close()
		return nil, ctx.Err()
	case err = <-done:
	}

	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, nil
	}
	return nil, fmt.Errorf("ssh: command failed: %w", err)
}

// Upload writes r to remotePath over SFTP, creating parent directories.
// r is read once; transient write failures are retried per the client's
// retry config.
func (c *Client) Upload(ctx context.Context, remotePath string, r io.Reader) error {
	sc, err := c.sftpClient()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("sftp: failed to read upload: %w", err)
	}
	n, err := putWithRetry(ctx, c.cfg.Retry, data, func(r io.Reader) (int64, error) {
		return uploadFile(sc, remotePath, r)
	}, "sftp upload "+remotePath)
	if err != nil {
		return err
	}
	util.DebugLog("Uploaded %d bytes to %s:%s", n, c.cfg.Host, remotePath)
	return nil
}

// putWithRetry hands put a fresh reader over data on every attempt.
func putWithRetry(ctx context.Context, cfg *util.RetryConfig, data []byte, put func(io.Reader) (int64, error), name string) (int64, error) {
	var n int64
	err := util.Retry(ctx, cfg, func() error {
		var err error
		n, err = put(bytes.NewReader(data))
		return err
	}, name)
	return n, err
}

func (c *Client) sftpClient() (*sftp.Client, error) {
	c.sftpOnce.Do(func() {
		c.sftp, c.sftpErr = sftp.NewClient(c.conn)
		if c.sftpErr != nil {
			c.sftpErr = fmt.Errorf("sftp: failed to create client: %w", c.sftpErr)
		}
	})
	return c.sftp, c.sftpErr
}

// uploadFile copies r into remotePath, truncating any existing file.
func uploadFile(sc *sftp.Client, remotePath string, r io.Reader) (int64, error) {
	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := sc.MkdirAll(dir); err != nil {
			return 0, fmt.Errorf("sftp: failed to create directory %s: %w", dir, err)
		}
	}

	dst, err := sc.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return 0, fmt.Errorf("sftp: failed to create file: %w", err)
	}

	n, err := io.Copy(dst, r)
	if err != nil {
		dst.Close()
		return n, fmt.Errorf("sftp: failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return n, fmt.Errorf("sftp: failed to close file: %w", err)
	}
	return n, nil
}

// Close closes the SFTP subsystem and the SSH connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.sftp != nil {
		c.sftp.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Host returns the configured host name.
func (c *Client) Host() string {
	return c.cfg.Host
}

var _ Host = (*Client)(nil)
