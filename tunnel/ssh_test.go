package tunnel

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	ircerr "ircmux/internal/errors"
)

// startGateway runs a password-authenticated SSH server that accepts
// direct-tcpip channels and answers keepalive requests.
func startGateway(t *testing.T) (string, int) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if string(pass) == "hunter2" {
				return nil, nil
			}
			return nil, fmt.Errorf("denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go serveGateway(c, cfg)
		}
	}()

	a := ln.Addr().(*net.TCPAddr)
	return a.IP.String(), a.Port
}

func serveGateway(c net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(c, cfg)
	if err != nil {
		c.Close()
		return
	}
	go func() {
		for req := range reqs {
			if req.WantReply {
				req.Reply(req.Type == "keepalive@openssh.com", nil) //nolint:errcheck
			}
		}
	}()

	for nc := range chans {
		if nc.ChannelType() != "direct-tcpip" {
			nc.Reject(ssh.UnknownChannelType, "unsupported") //nolint:errcheck
			continue
		}
		var target struct {
			Host     string
			Port     uint32
			OrigHost string
			OrigPort uint32
		}
		if err := ssh.Unmarshal(nc.ExtraData(), &target); err != nil {
			nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
			continue
		}
		up, err := net.Dial("tcp", net.JoinHostPort(target.Host, strconv.Itoa(int(target.Port))))
		if err != nil {
			nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
			continue
		}
		ch, chReqs, err := nc.Accept()
		if err != nil {
			up.Close()
			continue
		}
		go ssh.DiscardRequests(chReqs)
		go func() { io.Copy(ch, up); ch.Close() }() //nolint:errcheck
		go func() { io.Copy(up, ch); up.Close() }() //nolint:errcheck
	}
}

// startIRCStub answers every line with a fixed server reply.
func startIRCStub(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				sc := bufio.NewScanner(c)
				for sc.Scan() {
					fmt.Fprintf(c, ":irc.example.org NOTICE * :got %s\r\n", sc.Text())
				}
			}(c)
		}
	}()
	return ln.Addr().String()
}

func TestSSHTunnel_DialThroughGateway(t *testing.T) {
	stubSecret(t, func(string) ([]byte, error) { return []byte("hunter2"), nil })
	host, port := startGateway(t)
	ircAddr := startIRCStub(t)

	tun := NewSSHTunnel(&SSHConfig{
		User:              "bob",
		Host:              host,
		Port:              port,
		PromptPass:        true,
		ConnTimeout:       5 * time.Second,
		KeepAliveInterval: 20 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tun.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tun.Close()

	conn, err := tun.Dial(ctx, "tcp", ircAddr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	fmt.Fprint(conn, "NICK bob\r\n")
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != ":irc.example.org NOTICE * :got NICK bob\r\n" {
		t.Errorf("got %q", line)
	}

	// Let a few keepalives run against the gateway.
	time.Sleep(80 * time.Millisecond)
	if !tun.IsAlive() {
		t.Error("tunnel should survive keepalives")
	}
}

func TestSSHTunnel_WrongPassword(t *testing.T) {
	stubSecret(t, func(string) ([]byte, error) { return []byte("wrong"), nil })
	host, port := startGateway(t)

	tun := NewSSHTunnel(&SSHConfig{User: "bob", Host: host, Port: port, PromptPass: true}, nil)
	err := tun.Connect(context.Background())

	var sshErr *ircerr.SSHError
	if !errors.As(err, &sshErr) || sshErr.Op != "handshake" {
		t.Fatalf("expected handshake SSHError, got %v", err)
	}
	if tun.IsAlive() {
		t.Error("tunnel must not be alive after a failed handshake")
	}
}

func TestSSHTunnel_DialBeforeConnect(t *testing.T) {
	tun := NewSSHTunnel(&SSHConfig{Host: "bastion.example.com"}, nil)

	if _, err := tun.Dial(context.Background(), "tcp", "irc.example.org:6667"); !errors.Is(err, ircerr.ErrTunnelClosed) {
		t.Errorf("expected ErrTunnelClosed, got %v", err)
	}
	if err := tun.Close(); err != nil {
		t.Errorf("Close on an unconnected tunnel: %v", err)
	}
}

func TestSSHTunnel_Defaults(t *testing.T) {
	cfg := &SSHConfig{Host: "bastion.example.com"}
	NewSSHTunnel(cfg, nil)
	if cfg.Port != 22 || cfg.ConnTimeout != 30*time.Second {
		t.Errorf("defaults not applied: port=%d timeout=%v", cfg.Port, cfg.ConnTimeout)
	}
}
