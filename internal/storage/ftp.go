package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPOptions FTP 存储配置
type FTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	BasePath string
	Timeout  time.Duration
}

// FTPStorage 通过 FTP 保存文件，每次操作建立独立连接
type FTPStorage struct {
	opts FTPOptions
}

// NewFTPStorage 创建 FTP 存储
func NewFTPStorage(opts FTPOptions) (*FTPStorage, error) {
	if opts.Port == 0 {
		opts.Port = 21
	}
	if opts.Username == "" {
		opts.Username = "anonymous"
	}
	return &FTPStorage{opts: opts}, nil
}

func (s *FTPStorage) connect(ctx context.Context) (*ftp.ServerConn, error) {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(s.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp: 连接失败: %w", err)
	}
	if err := conn.Login(s.opts.Username, s.opts.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp: 登录失败: %w", err)
	}
	return conn, nil
}

func (s *FTPStorage) remotePath(name string) (string, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return path.Join(s.opts.BasePath, cleaned), nil
}

// makeDirs 逐级创建目录，已存在的目录忽略错误
func (s *FTPStorage) makeDirs(conn *ftp.ServerConn, dir string) {
	current := ""
	if strings.HasPrefix(dir, "/") {
		current = "/"
	}
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" || part == "." {
			continue
		}
		current = path.Join(current, part)
		_ = conn.MakeDir(current)
	}
}

// Upload 上传文件
func (s *FTPStorage) Upload(ctx context.Context, name string, data []byte) error {
	target, err := s.remotePath(name)
	if err != nil {
		return err
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	s.makeDirs(conn, path.Dir(target))
	if err := conn.Stor(target, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("ftp: 上传文件失败: %w", err)
	}
	return nil
}

// Download 下载文件
func (s *FTPStorage) Download(ctx context.Context, name string) ([]byte, error) {
	target, err := s.remotePath(name)
	if err != nil {
		return nil, err
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	resp, err := conn.Retr(target)
	if err != nil {
		if isFTPNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, name)
		}
		return nil, fmt.Errorf("ftp: 下载文件失败: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("ftp: 读取文件失败: %w", err)
	}
	return data, nil
}

// Delete 删除文件，文件不存在时不报错
func (s *FTPStorage) Delete(ctx context.Context, name string) error {
	target, err := s.remotePath(name)
	if err != nil {
		return err
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.Delete(target); err != nil && !isFTPNotFound(err) {
		return fmt.Errorf("ftp: 删除文件失败: %w", err)
	}
	return nil
}

// isFTPNotFound 判断是否为 550 文件不可用
func isFTPNotFound(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable
}
