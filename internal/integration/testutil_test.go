package integration_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/ssh"

	"pkt.systems/rollcall"
	"pkt.systems/rollcall/httpapi"
	"pkt.systems/rollcall/internal/auth"
	"pkt.systems/rollcall/sshserver"
)

type testServer struct {
	httpURL string
	sshAddr string
	totp    string
	signer  ssh.Signer
}

type testServerOptions struct {
	totp bool
}

func newTestServer(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()
	dir := t.TempDir()
	signer := newTestSigner(t)
	keysPath := filepath.Join(dir, "authorized_keys")
	if err := os.WriteFile(keysPath, ssh.MarshalAuthorizedKey(signer.PublicKey()), 0o600); err != nil {
		t.Fatalf("write authorized_keys: %v", err)
	}
	ts := &testServer{signer: signer}
	if opts.totp {
		key, err := auth.GenerateTOTP("rollcall", "ssh")
		if err != nil {
			t.Fatalf("generate totp: %v", err)
		}
		ts.totp = key.Secret()
	}

	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen http: %v", err)
	}
	sshLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = httpLn.Close()
		t.Fatalf("listen ssh: %v", err)
	}
	ts.httpURL = "http://" + httpLn.Addr().String()
	ts.sshAddr = sshLn.Addr().String()

	server, err := rollcall.New(rollcall.ServerConfig{
		HTTP: httpapi.Config{Addr: httpLn.Addr().String()},
		SSH: sshserver.Config{
			Addr:        sshLn.Addr().String(),
			HostKeyPath: filepath.Join(dir, "host_key"),
			Prompt:      "> ",
		},
		Auth: rollcall.AuthConfig{
			AuthorizedKeysPath: keysPath,
			TOTPSecret:         ts.totp,
		},
		Metrics: true,
	}, rollcall.ServerDeps{
		HTTPListener: httpLn,
		SSHListener:  sshLn,
	}, rollcall.WithHTTP(), rollcall.WithSSH())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := server.Start(ctx); err != nil {
		cancel()
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = server.Stop(stopCtx)
		cancel()
	})
	return ts
}

// authMethods returns the login methods for the registered key, answering
// the verification prompt when a TOTP secret is configured.
func (ts *testServer) authMethods(t *testing.T) []ssh.AuthMethod {
	t.Helper()
	methods := []ssh.AuthMethod{ssh.PublicKeys(ts.signer)}
	if ts.totp != "" {
		methods = append(methods, ssh.KeyboardInteractive(func(_, _ string, _ []string, _ []bool) ([]string, error) {
			return []string{currentTOTP(ts.totp)}, nil
		}))
	}
	return methods
}

func (ts *testServer) dial(t *testing.T) *ssh.Client {
	t.Helper()
	client, err := sshDial(ts.sshAddr, "demo", ts.authMethods(t))
	if err != nil {
		t.Fatalf("dial ssh: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func (ts *testServer) httpClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func (ts *testServer) waitMetric(t *testing.T, line string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var body string
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.httpURL + "/metrics")
		if err == nil {
			data, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			body = string(data)
			if strings.Contains(body, line) {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for metric %q: %s", line, body)
}

func sendJSON(t *testing.T, client *http.Client, method, url string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func readJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func newTestSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return signer
}

func sshDial(addr, user string, methods []ssh.AuthMethod) (*ssh.Client, error) {
	return ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            user,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
}

func expectOutput(t *testing.T, buffer *lockedBuffer, substr string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if strings.Contains(buffer.String(), substr) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %q in output: %s", substr, buffer.String())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func currentTOTP(secret string) string {
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		return ""
	}
	return code
}
