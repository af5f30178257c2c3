// Package storage 保存原始图片等二进制文件
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"plantdiag/internal/config"
)

// ErrObjectNotFound 文件不存在
var ErrObjectNotFound = errors.New("文件不存在")

// FileStorage 文件存储接口，路径统一使用 / 分隔的相对路径
type FileStorage interface {
	Upload(ctx context.Context, name string, data []byte) error
	Download(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// New 按配置创建文件存储
func New(cfg *config.StorageConfig) (FileStorage, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStorage(cfg.BasePath)
	case "sftp":
		return NewSFTPStorage(SFTPOptions{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			KeyFile:  cfg.KeyFile,
			BasePath: cfg.BasePath,
			Timeout:  cfg.GetTimeout(),
		})
	case "ftp":
		return NewFTPStorage(FTPOptions{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			BasePath: cfg.BasePath,
			Timeout:  cfg.GetTimeout(),
		})
	default:
		return nil, fmt.Errorf("不支持的存储后端: %s", cfg.Backend)
	}
}

// cleanName 规范化相对路径，拒绝跳出根目录
func cleanName(name string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("无效的文件路径: %q", name)
	}
	return cleaned, nil
}
