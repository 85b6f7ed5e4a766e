// Package upload implements the ports.Uploader port (spec §6.4): an
// AES-256-CBC-encrypted multipart POST transport, rate-limited on the
// outbound byte stream, with the server's response lines routed to the
// run's logger by severity prefix.
package upload

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/nmartinon/mboxzilla-go/internal/ports"
)

// Client implements ports.Uploader against the mboxzilla remote endpoint
// (spec §6.4: a single multipart-POST endpoint distinguishing operations
// by which form fields are present).
type Client struct {
	Endpoint   string
	Passphrase string
	HTTP       *http.Client
	Logger     ports.Logger
	// Limiter bounds the outbound byte rate (--speed-limit); nil means
	// unlimited.
	Limiter *rate.Limiter
}

// New constructs a Client. speedLimitBytesPerSec <= 0 means unlimited.
// TLS certificate verification is disabled by design, matching the
// existing mboxzilla deployments spec §6.4/§9 calls out as an explicit,
// documented option rather than an oversight.
func New(endpoint, passphrase string, logger ports.Logger, speedLimitBytesPerSec int) *Client {
	var lim *rate.Limiter
	if speedLimitBytesPerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(speedLimitBytesPerSec), speedLimitBytesPerSec)
	}
	return &Client{
		Endpoint:   endpoint,
		Passphrase: passphrase,
		HTTP: &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		},
		Logger:  logger,
		Limiter: lim,
	}
}

// deriveKey reproduces the wire protocol's key schedule: the AES-256 key is
// the first 32 bytes of hex(sha256(passphrase)) — i.e. the first 32
// characters of the digest's hex rendering, used verbatim as key bytes,
// not decoded back from hex.
func deriveKey(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	hexStr := hex.EncodeToString(sum[:])
	return []byte(hexStr[:32])
}

// encryptCBC AES-256-CBC-encrypts plaintext under key with a freshly
// generated iv, returning the padded ciphertext (iv is returned
// separately, per spec §6.4's "iv"/"token_iv" fields being sent alongside
// rather than prepended to the payload).
func encryptCBC(key, plaintext []byte) (ciphertext, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, eris.Wrap(err, "upload: new cipher")
	}
	iv = make([]byte, block.BlockSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, eris.Wrap(err, "upload: generate iv")
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, iv, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// throttledReader wraps an io.Reader so each Read is paced by a
// rate.Limiter, implementing --speed-limit without a hand-rolled token
// bucket.
type throttledReader struct {
	r   io.Reader
	lim *rate.Limiter
	ctx context.Context
}

func (t *throttledReader) Read(p []byte) (int, error) {
	// WaitN rejects requests larger than the limiter's burst, so never read
	// more than one burst at a time.
	if t.lim != nil && len(p) > t.lim.Burst() {
		p = p[:t.lim.Burst()]
	}
	n, err := t.r.Read(p)
	if n > 0 && t.lim != nil {
		if werr := t.lim.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (c *Client) throttle(ctx context.Context, r io.Reader) io.Reader {
	if c.Limiter == nil {
		return r
	}
	return &throttledReader{r: r, lim: c.Limiter, ctx: ctx}
}

// tokenFields builds the "token"/"token_iv" pair every request in the
// protocol carries: base64(AES-256-CBC(key, iv, "YYYYMMDD_HHMMSS")) and
// base64(iv).
func (c *Client) tokenFields() (token, tokenIV string, err error) {
	key := deriveKey(c.Passphrase)
	plain := []byte(time.Now().UTC().Format("20060102_150405"))
	ct, iv, err := encryptCBC(key, plain)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(ct), base64.StdEncoding.EncodeToString(iv), nil
}

func (c *Client) post(ctx context.Context, fields map[string]string, fileField, fileName string, fileBody []byte) (*http.Response, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, eris.Wrapf(err, "upload: write field %s", k)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			return nil, eris.Wrap(err, "upload: create file field")
		}
		if _, err := fw.Write(fileBody); err != nil {
			return nil, eris.Wrap(err, "upload: write file field")
		}
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "upload: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, c.throttle(ctx, &body))
	if err != nil {
		return nil, eris.Wrap(err, "upload: build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.HTTP.Do(req)
}

// Available implements the protocol's health check: check=HELLO, expecting
// a bare "READY" body with HTTP 200.
func (c *Client) Available(ctx context.Context) bool {
	token, tokenIV, err := c.tokenFields()
	if err != nil {
		return false
	}
	resp, err := c.post(ctx, map[string]string{
		"check":    "HELLO",
		"token":    token,
		"token_iv": tokenIV,
	}, "", "", nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	data, err := io.ReadAll(resp.Body)
	return err == nil && strings.TrimSpace(string(data)) == "READY"
}

// ListRemote implements get_filelist: the response is a gzip-compressed
// JSON array of filenames already present under dir on the remote end.
func (c *Client) ListRemote(ctx context.Context, dir string) ([]string, error) {
	token, tokenIV, err := c.tokenFields()
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, map[string]string{
		"get_filelist": dir,
		"token":        token,
		"token_iv":     tokenIV,
	}, "", "", nil)
	if err != nil {
		return nil, eris.Wrapf(err, "upload: POST get_filelist %s", dir)
	}
	defer resp.Body.Close()

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "upload: ungzip file list")
	}
	defer gz.Close()

	var names []string
	if err := json.NewDecoder(gz).Decode(&names); err != nil {
		return nil, eris.Wrap(err, "upload: decode file list")
	}
	return names, nil
}

// Upload encrypts name's bytes under a fresh IV and POSTs them as
// fileToUpload, with the filename itself base64-encoded so it survives
// whatever slash-stripping the remote applies to form field values.
func (c *Client) Upload(ctx context.Context, name string, data []byte) error {
	key := deriveKey(c.Passphrase)
	token, tokenIV, err := c.tokenFields()
	if err != nil {
		return err
	}
	ct, iv, err := encryptCBC(key, data)
	if err != nil {
		return err
	}

	resp, err := c.post(ctx, map[string]string{
		"token":    token,
		"token_iv": tokenIV,
		"iv":       base64.StdEncoding.EncodeToString(iv),
	}, "fileToUpload", base64.StdEncoding.EncodeToString([]byte(name)), ct)
	if err != nil {
		return eris.Wrapf(err, "upload: POST %s", c.Endpoint)
	}
	defer resp.Body.Close()
	return c.routeResponse(resp.Body)
}

// SyncFileList posts the protocol's sync_filelist operation: base64(gzip(
// json array of names)) plus sync_directory=dir. The server's response is
// the subset of names it considers obsolete.
func (c *Client) SyncFileList(ctx context.Context, dir string, names []string) ([]string, error) {
	payload, err := json.Marshal(names)
	if err != nil {
		return nil, eris.Wrap(err, "upload: marshal file list")
	}
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(payload); err != nil {
		return nil, eris.Wrap(err, "upload: gzip file list")
	}
	if err := zw.Close(); err != nil {
		return nil, eris.Wrap(err, "upload: close gzip writer")
	}

	token, tokenIV, err := c.tokenFields()
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, map[string]string{
		"sync_filelist":  base64.StdEncoding.EncodeToString(gz.Bytes()),
		"sync_directory": dir,
		"token":          token,
		"token_iv":       tokenIV,
	}, "", "", nil)
	if err != nil {
		return nil, eris.Wrapf(err, "upload: POST sync_filelist for %s", dir)
	}
	defer resp.Body.Close()

	var obsolete []string
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&obsolete); err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "upload: decode sync response")
	}
	return obsolete, nil
}

// routeResponse reads newline-delimited server status lines and sends each
// to the logger at the severity its prefix names: INFO#, WARNING#, ERROR#,
// or VERBOSE{1,2,3}#. An ERROR# line raises a fault (spec §6.4).
func (c *Client) routeResponse(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return eris.Wrap(err, "upload: read response")
	}
	var fault error
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		sev, msg, ok := splitSeverityPrefix(line)
		if !ok {
			sev, msg = ports.Info, line
		}
		if c.Logger != nil {
			c.Logger.Log(sev, msg, nil)
		}
		if sev == ports.Error && fault == nil {
			fault = eris.Errorf("upload: remote reported error: %s", msg)
		}
	}
	return fault
}

func splitSeverityPrefix(line string) (ports.Severity, string, bool) {
	prefixes := []struct {
		p   string
		sev ports.Severity
	}{
		{"ERROR#", ports.Error},
		{"WARNING#", ports.Warning},
		{"INFO#", ports.Info},
		{"VERBOSE1#", ports.Verbose1},
		{"VERBOSE2#", ports.Verbose2},
		{"VERBOSE3#", ports.Verbose3},
	}
	for _, p := range prefixes {
		if strings.HasPrefix(line, p.p) {
			return p.sev, strings.TrimPrefix(line, p.p), true
		}
	}
	return 0, "", false
}
