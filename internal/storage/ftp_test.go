package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFTPServer 最小的内存 FTP 服务端，只支持被动模式传输
type memFTPServer struct {
	ln    net.Listener
	mu    sync.Mutex
	files map[string][]byte
	dele  int // DELE 失败时返回的状态码，0 表示按文件是否存在处理
}

func newMemFTPServer(t *testing.T) *memFTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &memFTPServer{ln: ln, files: make(map[string][]byte)}
	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go s.session(nc)
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *memFTPServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *memFTPServer) file(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

func (s *memFTPServer) session(nc net.Conn) {
	defer nc.Close()
	conn := textproto.NewConn(nc)

	var passive net.Listener
	defer func() {
		if passive != nil {
			_ = passive.Close()
		}
	}()
	acceptData := func() (net.Conn, error) {
		if passive == nil {
			return nil, errors.New("no passive listener")
		}
		_ = passive.(*net.TCPListener).SetDeadline(time.Now().Add(5 * time.Second))
		return passive.Accept()
	}

	_ = conn.PrintfLine("220 ready")
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(line, " ")

		switch strings.ToUpper(cmd) {
		case "USER":
			_ = conn.PrintfLine("331 password required")
		case "PASS":
			_ = conn.PrintfLine("230 logged in")
		case "TYPE":
			_ = conn.PrintfLine("200 type set")
		case "MKD":
			_ = conn.PrintfLine("257 %q created", arg)
		case "EPSV":
			if passive != nil {
				_ = passive.Close()
			}
			passive, err = net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				_ = conn.PrintfLine("425 cannot open data connection")
				continue
			}
			_ = conn.PrintfLine("229 Entering Extended Passive Mode (|||%d|)", passive.Addr().(*net.TCPAddr).Port)
		case "STOR":
			dc, err := acceptData()
			if err != nil {
				_ = conn.PrintfLine("425 cannot open data connection")
				continue
			}
			_ = conn.PrintfLine("150 opening data connection")
			body, _ := io.ReadAll(dc)
			_ = dc.Close()
			s.mu.Lock()
			s.files[arg] = body
			s.mu.Unlock()
			_ = conn.PrintfLine("226 transfer complete")
		case "RETR":
			dc, err := acceptData()
			if err != nil {
				_ = conn.PrintfLine("425 cannot open data connection")
				continue
			}
			body, ok := s.file(arg)
			if !ok {
				_ = dc.Close()
				_ = conn.PrintfLine("550 %s: no such file", arg)
				continue
			}
			_ = conn.PrintfLine("150 opening data connection")
			_, _ = dc.Write(body)
			_ = dc.Close()
			_ = conn.PrintfLine("226 transfer complete")
		case "DELE":
			s.mu.Lock()
			_, ok := s.files[arg]
			delete(s.files, arg)
			code := s.dele
			s.mu.Unlock()
			switch {
			case code != 0:
				_ = conn.PrintfLine("%d cannot delete %s", code, arg)
			case ok:
				_ = conn.PrintfLine("250 deleted")
			default:
				_ = conn.PrintfLine("550 %s: no such file", arg)
			}
		case "QUIT":
			_ = conn.PrintfLine("221 bye")
			return
		default:
			_ = conn.PrintfLine("502 %s not implemented", cmd)
		}
	}
}

func newTestFTPStorage(t *testing.T, srv *memFTPServer) *FTPStorage {
	t.Helper()
	s, err := NewFTPStorage(FTPOptions{
		Host:     "127.0.0.1",
		Port:     srv.port(),
		Username: "plant",
		Password: "secret",
		BasePath: "/images",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	return s
}

func TestFTPStorage_UploadDownloadDelete(t *testing.T) {
	srv := newMemFTPServer(t)
	s := newTestFTPStorage(t, srv)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "a/leaf.jpg", []byte("jpeg")))
	stored, ok := srv.file("/images/a/leaf.jpg")
	require.True(t, ok)
	assert.Equal(t, []byte("jpeg"), stored)

	data, err := s.Download(ctx, "a/leaf.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	require.NoError(t, s.Delete(ctx, "a/leaf.jpg"))
	_, ok = srv.file("/images/a/leaf.jpg")
	assert.False(t, ok)

	// 重复删除不报错
	require.NoError(t, s.Delete(ctx, "a/leaf.jpg"))
}

func TestFTPStorage_DownloadMissing(t *testing.T) {
	srv := newMemFTPServer(t)
	s := newTestFTPStorage(t, srv)

	_, err := s.Download(context.Background(), "missing.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFTPStorage_DeleteOtherFailure(t *testing.T) {
	srv := newMemFTPServer(t)
	srv.dele = 450
	s := newTestFTPStorage(t, srv)

	err := s.Delete(context.Background(), "leaf.jpg")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrObjectNotFound)
}

func TestFTPStorage_RejectsTraversal(t *testing.T) {
	s, err := NewFTPStorage(FTPOptions{Host: "127.0.0.1", BasePath: "/images"})
	require.NoError(t, err)

	target, err := s.remotePath("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "/images/etc/passwd", target)

	_, err = s.remotePath("..")
	assert.Error(t, err)
}

func TestIsFTPNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"file_unavailable", &textproto.Error{Code: 550, Msg: "no such file"}, true},
		{"wrapped", fmt.Errorf("retr: %w", &textproto.Error{Code: 550, Msg: "no such file"}), true},
		{"busy", &textproto.Error{Code: 450, Msg: "file busy"}, false},
		{"message_starts_with_550", errors.New("550 bytes written before reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isFTPNotFound(tt.err))
		})
	}
}
