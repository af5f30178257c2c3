package storage

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// startSFTPServer 启动进程内 SSH 服务端，sftp 子系统直接操作本地文件系统
func startSFTPServer(t *testing.T, user, password string) int {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(key)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() == user && string(pass) == password {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSSH(nc, config)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func serveSSH(nc net.Conn, config *ssh.ServerConfig) {
	conn, chans, reqs, err := ssh.NewServerConn(nc, config)
	if err != nil {
		_ = nc.Close()
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			return
		}
		go func() {
			for req := range requests {
				ok := req.Type == "subsystem" && subsystemName(req.Payload) == "sftp"
				_ = req.Reply(ok, nil)
				if !ok {
					continue
				}
				server, err := sftp.NewServer(channel)
				if err != nil {
					_ = channel.Close()
					return
				}
				_ = server.Serve()
				_ = server.Close()
			}
		}()
	}
}

func subsystemName(payload []byte) string {
	if len(payload) < 4 {
		return ""
	}
	n := binary.BigEndian.Uint32(payload)
	if int(n) > len(payload)-4 {
		return ""
	}
	return string(payload[4 : 4+n])
}

func TestSFTPStorage_UploadDownloadDelete(t *testing.T) {
	port := startSFTPServer(t, "plant", "secret")
	base := t.TempDir()

	s, err := NewSFTPStorage(SFTPOptions{
		Host:     "127.0.0.1",
		Port:     port,
		Username: "plant",
		Password: "secret",
		BasePath: filepath.ToSlash(base),
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "a/leaf.jpg", []byte("jpeg")))
	stored, err := os.ReadFile(filepath.Join(base, "a", "leaf.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), stored)

	data, err := s.Download(ctx, "a/leaf.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	require.NoError(t, s.Delete(ctx, "a/leaf.jpg"))
	_, err = s.Download(ctx, "a/leaf.jpg")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// 重复删除不报错
	require.NoError(t, s.Delete(ctx, "a/leaf.jpg"))
}

func TestSFTPStorage_WrongPassword(t *testing.T) {
	port := startSFTPServer(t, "plant", "secret")

	s, err := NewSFTPStorage(SFTPOptions{
		Host:     "127.0.0.1",
		Port:     port,
		Username: "plant",
		Password: "wrong",
		BasePath: t.TempDir(),
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)

	_, err = s.Download(context.Background(), "leaf.jpg")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrObjectNotFound)
}

func TestSFTPStorage_CanceledContext(t *testing.T) {
	// 只接受连接不做握手的服务端
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	held := make(chan net.Conn, 1)
	go func() {
		if nc, err := ln.Accept(); err == nil {
			held <- nc
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		select {
		case nc := <-held:
			_ = nc.Close()
		case <-time.After(2 * time.Second):
		}
	})

	s, err := NewSFTPStorage(SFTPOptions{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port, Password: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Download(ctx, "leaf.jpg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSFTPStorage_RequiresAuth(t *testing.T) {
	_, err := NewSFTPStorage(SFTPOptions{Host: "127.0.0.1"})
	assert.Error(t, err)
}
