package docsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

var pdfMagic = []byte("%PDF")

// Source fetches documents from the Summit backend and parses them
// into page-addressable handles.
type Source struct {
	baseURL    string
	endpoint   string // template, {id} is replaced with the document id
	maxBytes   int64
	httpClient *http.Client
	log        *slog.Logger
}

func NewSource(baseURL, endpointTemplate string, maxBytes int64, timeout time.Duration, log *slog.Logger) *Source {
	return &Source{
		baseURL:  strings.TrimRight(baseURL, "/"),
		endpoint: endpointTemplate,
		maxBytes: maxBytes,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Load fetches and parses the document. The credential is forwarded
// as-is; an empty credential sends no token. Cancelling ctx aborts the
// fetch and the caller must discard any partial result.
func (s *Source) Load(ctx context.Context, documentID, credential string) (Document, error) {
	u := s.baseURL + strings.ReplaceAll(s.endpoint, "{id}", url.PathEscape(documentID))
	if credential != "" {
		u += "?token=" + url.QueryEscape(credential)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, networkErr(fmt.Errorf("create request: %w", err))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, networkErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, httpErr(resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, networkErr(fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > s.maxBytes {
		return nil, &LoadError{Kind: KindParse, Msg: fmt.Sprintf("document exceeds max size (%d bytes)", s.maxBytes)}
	}

	doc, err := parseDocument(data, resp.Header.Get("Content-Type"), dispositionFilename(resp.Header.Get("Content-Disposition")))
	if err != nil {
		return nil, err
	}

	// Cooperative cancellation: a caller that cancelled mid-parse must
	// not receive a live handle.
	if err := ctx.Err(); err != nil {
		doc.Close()
		return nil, networkErr(err)
	}

	s.log.Debug("document loaded", "document_id", documentID, "pages", doc.PageCount(), "bytes", len(data))
	return doc, nil
}

// parseDocument decodes raw bytes into a Document, picking a backend
// from the content. PDF goes to the MuPDF rasterizer first and falls
// back to text extraction when that fails; everything else flows
// through the text-layout backend.
func parseDocument(data []byte, contentType, filename string) (Document, error) {
	if len(data) == 0 {
		return nil, parseErr(fmt.Errorf("empty document body"))
	}

	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}
	ext := strings.ToLower(filepath.Ext(filename))

	if bytes.HasPrefix(data, pdfMagic) || mediaType == "application/pdf" || ext == ".pdf" {
		doc, err := newFitzDocument(data)
		if err == nil {
			return doc, nil
		}
		fallback, fbErr := newPDFTextDocument(data)
		if fbErr != nil {
			return nil, parseErr(fmt.Errorf("pdf: %w (fallback: %v)", err, fbErr))
		}
		return fallback, nil
	}

	var blocks []Block
	var err error
	switch {
	case mediaType == "text/markdown" || ext == ".md" || ext == ".markdown":
		blocks, err = markdownBlocks(data)
	case mediaType == "text/html" || ext == ".html" || ext == ".htm":
		blocks, err = htmlBlocks(data)
	case mediaType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" || ext == ".docx":
		blocks, err = docxBlocks(data)
	default:
		blocks, err = textBlocks(string(data))
	}
	if err != nil {
		return nil, parseErr(err)
	}

	doc, err := NewTextDocument(blocks)
	if err != nil {
		return nil, parseErr(err)
	}
	return doc, nil
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
