package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPOptions SFTP 存储配置
type SFTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	KeyFile  string
	BasePath string
	Timeout  time.Duration
}

// SFTPStorage 通过 SFTP 保存文件，每次操作建立独立连接
type SFTPStorage struct {
	opts SFTPOptions
	auth []ssh.AuthMethod
}

// NewSFTPStorage 创建 SFTP 存储
func NewSFTPStorage(opts SFTPOptions) (*SFTPStorage, error) {
	if opts.Port == 0 {
		opts.Port = 22
	}

	var auth []ssh.AuthMethod
	switch {
	case opts.KeyFile != "":
		key, err := os.ReadFile(opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: 读取私钥失败: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("sftp: 解析私钥失败: %w", err)
		}
		auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	case opts.Password != "":
		auth = []ssh.AuthMethod{ssh.Password(opts.Password)}
	default:
		return nil, fmt.Errorf("sftp: 未配置认证方式")
	}

	return &SFTPStorage{opts: opts, auth: auth}, nil
}

// connect 建立 SFTP 连接
func (s *SFTPStorage) connect(ctx context.Context) (*sftp.Client, *ssh.Client, error) {
	type connResult struct {
		client *sftp.Client
		conn   *ssh.Client
		err    error
	}
	resultChan := make(chan connResult, 1)

	go func() {
		config := &ssh.ClientConfig{
			User:            s.opts.Username,
			Auth:            s.auth,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         s.opts.Timeout,
		}

		addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
		conn, err := ssh.Dial("tcp", addr, config)
		if err != nil {
			resultChan <- connResult{err: fmt.Errorf("sftp: 连接失败: %w", err)}
			return
		}

		client, err := sftp.NewClient(conn)
		if err != nil {
			conn.Close()
			resultChan <- connResult{err: fmt.Errorf("sftp: 创建客户端失败: %w", err)}
			return
		}

		resultChan <- connResult{client: client, conn: conn}
	}()

	select {
	case <-ctx.Done():
		// 连接完成后释放
		go func() {
			if r := <-resultChan; r.err == nil {
				r.client.Close()
				r.conn.Close()
			}
		}()
		return nil, nil, ctx.Err()
	case r := <-resultChan:
		return r.client, r.conn, r.err
	}
}

func (s *SFTPStorage) remotePath(name string) (string, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return path.Join(s.opts.BasePath, cleaned), nil
}

// Upload 上传文件
func (s *SFTPStorage) Upload(ctx context.Context, name string, data []byte) error {
	target, err := s.remotePath(name)
	if err != nil {
		return err
	}

	client, conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	if err := client.MkdirAll(path.Dir(target)); err != nil {
		return fmt.Errorf("sftp: 创建目录失败: %w", err)
	}

	dst, err := client.Create(target)
	if err != nil {
		return fmt.Errorf("sftp: 创建文件失败: %w", err)
	}
	if _, err := dst.Write(data); err != nil {
		dst.Close()
		return fmt.Errorf("sftp: 写入文件失败: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("sftp: 写入文件失败: %w", err)
	}
	return nil
}

// Download 下载文件
func (s *SFTPStorage) Download(ctx context.Context, name string) ([]byte, error) {
	target, err := s.remotePath(name)
	if err != nil {
		return nil, err
	}

	client, conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	defer client.Close()

	src, err := client.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("sftp: 打开文件失败: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("sftp: 读取文件失败: %w", err)
	}
	return data, nil
}

// Delete 删除文件，文件不存在时不报错
func (s *SFTPStorage) Delete(ctx context.Context, name string) error {
	target, err := s.remotePath(name)
	if err != nil {
		return err
	}

	client, conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	if err := client.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("sftp: 删除文件失败: %w", err)
	}
	return nil
}
