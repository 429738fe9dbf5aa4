package uploads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultTransferTimeout = 10 * time.Minute

// TransferConfig captures the runtime settings for pre-signed uploads.
type TransferConfig struct {
	TimeoutSeconds int
}

// Transferer streams local files to pre-signed URLs with a single PUT per
// file. Progress is reported through a callback as bytes move.
type Transferer struct {
	cfg        TransferConfig
	httpClient *http.Client
}

// TransferOption customizes the transferer.
type TransferOption func(*Transferer)

// WithTransferHTTPClient overrides the default HTTP client.
func WithTransferHTTPClient(client *http.Client) TransferOption {
	return func(t *Transferer) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// NewTransferer constructs a transferer using the supplied configuration.
func NewTransferer(cfg TransferConfig, opts ...TransferOption) *Transferer {
	timeout := defaultTransferTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	t := &Transferer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TransferRequest describes one pre-signed upload.
type TransferRequest struct {
	URL         string
	FilePath    string
	ContentType string
	// OnProgress receives a percentage in [0,100] as the body streams. May
	// be nil.
	OnProgress func(percent int)
}

// progressReader reports cumulative read progress against a known total.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	lastPct  int
	onChange func(percent int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.total > 0 && p.onChange != nil {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct != p.lastPct {
			p.lastPct = pct
			p.onChange(pct)
		}
	}
	return n, err
}

// Put streams the file to the pre-signed URL. A non-nil *Error describes the
// failure for item state; nil means the upload was accepted.
func (t *Transferer) Put(ctx context.Context, req TransferRequest) *Error {
	if strings.TrimSpace(req.URL) == "" {
		return &Error{Message: "no upload destination was provided", Kind: ErrKindUnknown}
	}
	file, err := os.Open(req.FilePath)
	if err != nil {
		return &Error{
			Message:    "the file could not be read; reattach it and retry",
			Kind:       ErrKindValidation,
			Diagnostic: err.Error(),
		}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return &Error{
			Message:    "the file could not be read; reattach it and retry",
			Kind:       ErrKindValidation,
			Diagnostic: err.Error(),
		}
	}

	body := &progressReader{
		r:        file,
		total:    info.Size(),
		onChange: req.OnProgress,
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, req.URL, body)
	if err != nil {
		return &Error{
			Message:    "the upload request could not be built",
			Kind:       ErrKindUnknown,
			Diagnostic: err.Error(),
		}
	}
	httpReq.ContentLength = info.Size()
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return Classify(err, 0, "")
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if req.OnProgress != nil {
			req.OnProgress(100)
		}
		return nil
	}
	if readErr != nil {
		respBody = []byte(fmt.Sprintf("<unreadable body: %v>", readErr))
	}
	return Classify(nil, resp.StatusCode, string(respBody))
}
