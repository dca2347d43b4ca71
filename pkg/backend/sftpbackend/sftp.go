// Package sftpbackend implements backend.Backend over an SFTP
// connection, storing the same path layout as localfs. It dials an
// SSH connection (user/addr/password or private key auth) and
// performs the same sharded-directory file operations remotely,
// covering every file kind this format persists.
package sftpbackend

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/jLantxa/backup/pkg/backend"
)

// Config describes how to dial the remote SFTP server.
type Config struct {
	Addr            string // host:port
	User            string
	Password        string // optional; if PrivateKeyPEM is also set, both methods are offered
	PrivateKeyPEM   []byte // optional
	HostKeyCallback ssh.HostKeyCallback
}

// Storage implements backend.Backend over a single long-lived SFTP
// session, reconnecting lazily on demand behind a plain mutex since
// the client pool here is always one.
type Storage struct {
	root string
	cc   *ssh.ClientConfig
	addr string

	mu     sync.Mutex
	client *sftp.Client
	conn   *ssh.Client
}

var _ backend.Backend = (*Storage)(nil)

// New returns a Storage that will connect to cfg.Addr on first use
// and operate under root on the remote filesystem.
func New(root string, cfg Config) (*Storage, error) {
	auth := []ssh.AuthMethod{}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(cfg.PrivateKeyPEM) > 0 {
		signer, err := ssh.ParsePrivateKey(cfg.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("sftpbackend: parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if len(auth) == 0 {
		return nil, errors.New("sftpbackend: no authentication method configured")
	}
	hostKeyCallback := cfg.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	return &Storage{
		root: root,
		addr: cfg.Addr,
		cc: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
		},
	}, nil
}

func (s *Storage) dial() (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	conn, err := ssh.Dial("tcp", s.addr, s.cc)
	if err != nil {
		return nil, fmt.Errorf("sftpbackend: dial %s: %w", s.addr, err)
	}
	cl, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftpbackend: new client: %w", err)
	}
	s.conn, s.client = conn, cl
	return cl, nil
}

// Close tears down the underlying SSH connection.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *Storage) abs(p string) string {
	return path.Join(s.root, p)
}

func (s *Storage) CreateRoot(p string) error {
	cl, err := s.dial()
	if err != nil {
		return err
	}
	full := s.abs(p)
	if _, err := cl.Stat(full); err == nil {
		return fmt.Errorf("sftpbackend: root %q already exists", full)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return cl.MkdirAll(full)
}

func (s *Storage) Write(p string, data []byte) error {
	cl, err := s.dial()
	if err != nil {
		return err
	}
	if err := cl.MkdirAll(path.Dir(s.abs(p))); err != nil {
		return err
	}
	f, err := cl.Create(s.abs(p))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func (s *Storage) Read(p string) ([]byte, error) {
	cl, err := s.dial()
	if err != nil {
		return nil, err
	}
	f, err := cl.Open(s.abs(p))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Storage) SeekRead(p string, offset, length int64) ([]byte, error) {
	cl, err := s.dial()
	if err != nil {
		return nil, err
	}
	f, err := cl.Open(s.abs(p))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *Storage) Rename(oldPath, newPath string) error {
	cl, err := s.dial()
	if err != nil {
		return err
	}
	if err := cl.MkdirAll(path.Dir(s.abs(newPath))); err != nil {
		return err
	}
	_ = cl.Remove(s.abs(newPath))
	return cl.Rename(s.abs(oldPath), s.abs(newPath))
}

func (s *Storage) Remove(p string) error {
	cl, err := s.dial()
	if err != nil {
		return err
	}
	err = cl.Remove(s.abs(p))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Storage) RemoveAll(p string) error {
	cl, err := s.dial()
	if err != nil {
		return err
	}
	return cl.RemoveAll(s.abs(p))
}

func (s *Storage) Exists(p string) (bool, error) {
	cl, err := s.dial()
	if err != nil {
		return false, err
	}
	_, err = cl.Stat(s.abs(p))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *Storage) ReadDir(p string) ([]backend.FileInfo, error) {
	cl, err := s.dial()
	if err != nil {
		return nil, err
	}
	entries, err := cl.ReadDir(s.abs(p))
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	out := make([]backend.FileInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, backend.FileInfo{
			Name:    e.Name(),
			Size:    e.Size(),
			Mode:    e.Mode(),
			ModTime: e.ModTime(),
			IsDir:   e.IsDir(),
		})
	}
	return out, nil
}

func (s *Storage) Lstat(p string) (backend.FileInfo, error) {
	cl, err := s.dial()
	if err != nil {
		return backend.FileInfo{}, err
	}
	info, err := cl.Lstat(s.abs(p))
	if err != nil {
		return backend.FileInfo{}, err
	}
	return backend.FileInfo{
		Name:    info.Name(),
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

func (s *Storage) MkdirAll(p string) error {
	cl, err := s.dial()
	if err != nil {
		return err
	}
	return cl.MkdirAll(s.abs(p))
}
