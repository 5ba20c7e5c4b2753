package pdftext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjeldshjelp/debt-cli/internal/config"
	"github.com/gjeldshjelp/debt-cli/internal/resilience"
)

func TestNewPageSource_Local(t *testing.T) {
	src, err := NewPageSource(config.PDFConfig{Provider: "local", PdfToTextPath: "/usr/bin/pdftotext"})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, src)
}

func TestNewPageSource_Default(t *testing.T) {
	src, err := NewPageSource(config.PDFConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, src)
}

func TestNewPageSource_Native(t *testing.T) {
	src, err := NewPageSource(config.PDFConfig{Provider: "native"})
	require.NoError(t, err)
	assert.IsType(t, &Native{}, src)
}

func TestNewPageSource_MistralMissingKey(t *testing.T) {
	_, err := NewPageSource(config.PDFConfig{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral provider requires mistral_api_key")
}

func TestNewPageSource_MistralWithKey(t *testing.T) {
	src, err := NewPageSource(config.PDFConfig{Provider: "mistral", MistralKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &MistralOCR{}, src)
}

func TestNewPageSource_Unknown(t *testing.T) {
	_, err := NewPageSource(config.PDFConfig{Provider: "tesseract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "tesseract"`)
}

func TestSplitPages(t *testing.T) {
	assert.Equal(t, []string{"one", "two"}, splitPages("one\ftwo\f"))
	assert.Equal(t, []string{"one", "two", "three"}, splitPages("one\ftwo\fthree"))
	assert.Equal(t, []string{""}, splitPages(""))
	assert.Equal(t, []string{"a", "", "c"}, splitPages("a\f\fc\f\n"))
}

func TestPdfToText_BinPath(t *testing.T) {
	assert.Equal(t, "pdftotext", NewPdfToText("").binPath)
	assert.Equal(t, "/custom/pdftotext", NewPdfToText("/custom/pdftotext").binPath)
}

func TestPdfToText_BinaryNotFound(t *testing.T) {
	_, err := NewPdfToText("/nonexistent/pdftotext").Pages(context.Background(), "/tmp/test.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestPdfToText_SplitsFakeOutput(t *testing.T) {
	fakeBin := filepath.Join(t.TempDir(), "pdftotext")
	script := "#!/bin/sh\nprintf 'Totalbeløp: 15 000,00\\f20001/23 Rest hovedstol: 10 000,00\\f'\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0755))

	pages, err := NewPdfToText(fakeBin).Pages(context.Background(), "/tmp/dummy.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "Totalbeløp")
	assert.Contains(t, pages[1], "20001/23")
}

func TestNative_OpenFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0644))

	_, err := NewNative().Pages(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftext: open")
}

func TestNative_ClosesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0644))

	var opened *os.File
	n := &Native{open: func(name string) (*os.File, error) {
		f, err := os.Open(name)
		opened = f
		return f, err
	}}
	_, err := n.Pages(context.Background(), path)
	require.Error(t, err)
	require.NotNil(t, opened)
	assert.ErrorIs(t, opened.Close(), os.ErrClosed)
}

func TestNative_MissingFile(t *testing.T) {
	_, err := NewNative().Pages(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftext: open")
}

func writeTestPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test content"), 0644))
	return path
}

func newTestMistral(url string) *MistralOCR {
	return &MistralOCR{
		apiKey:   "test-key",
		model:    "test-model",
		endpoint: url,
		client:   &http.Client{},
		retry:    resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond},
	}
}

func TestMistralOCR_DefaultModel(t *testing.T) {
	m := NewMistralOCR("key", "")
	assert.Equal(t, defaultMistralModel, m.model)
	assert.Equal(t, mistralOCREndpoint, m.endpoint)
}

func TestMistralOCR_PagesInIndexOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req mistralOCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Contains(t, req.Document.DocumentURL, "data:application/pdf;base64,")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mistralOCRResponse{Pages: []mistralOCRPage{ //nolint:errcheck
			{Index: 1, Markdown: "Page two"},
			{Index: 0, Markdown: "Page one"},
		}})
	}))
	defer srv.Close()

	pages, err := newTestMistral(srv.URL).Pages(context.Background(), writeTestPDF(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Page one", "Page two"}, pages)
}

func TestMistralOCR_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"pages":[{"index":0,"markdown":"ok"}]}`))
	}))
	defer srv.Close()

	pages, err := newTestMistral(srv.URL).Pages(context.Background(), writeTestPDF(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, pages)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMistralOCR_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	_, err := newTestMistral(srv.URL).Pages(context.Background(), writeTestPDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral API returned 401")
}

func TestMistralOCR_FileNotFound(t *testing.T) {
	_, err := NewMistralOCR("key", "model").Pages(context.Background(), "/nonexistent/file.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read PDF")
}

func TestMistralOCR_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{invalid json`))
	}))
	defer srv.Close()

	_, err := newTestMistral(srv.URL).Pages(context.Background(), writeTestPDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal mistral response")
}
