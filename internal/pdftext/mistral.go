package pdftext

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"os"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/resilience"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "mistral-ocr-latest"
)

// MistralOCR extracts page text from scanned statements using the Mistral OCR API.
type MistralOCR struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	retry    resilience.RetryConfig
}

// NewMistralOCR creates a MistralOCR source. If model is empty, the default is used.
func NewMistralOCR(apiKey, model string) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	return &MistralOCR{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{},
		retry:    resilience.DefaultRetryConfig(),
	}
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type mistralOCRResponse struct {
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// Pages uploads the PDF as a data URL and returns the markdown of each page
// ordered by page index.
func (m *MistralOCR) Pages(ctx context.Context, pdfPath string) ([]string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pdftext: read PDF %s", pdfPath)
	}

	body, err := json.Marshal(mistralOCRRequest{
		Model: m.model,
		Document: mistralOCRDocument{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: marshal mistral request")
	}

	cfg := m.retry
	cfg.OnRetry = resilience.RetryLogger("mistral", "ocr")
	respBody, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return m.post(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return nil, eris.Wrap(err, "pdftext: unmarshal mistral response")
	}

	sort.SliceStable(ocrResp.Pages, func(i, j int) bool {
		return ocrResp.Pages[i].Index < ocrResp.Pages[j].Index
	})
	pages := make([]string, len(ocrResp.Pages))
	for i, p := range ocrResp.Pages {
		pages[i] = p.Markdown
	}
	return pages, nil
}

func (m *MistralOCR) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: mistral API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: read mistral response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.ClassifyResponse(resp, eris.Errorf("pdftext: mistral API returned %d: %s", resp.StatusCode, string(respBody)))
	}
	return respBody, nil
}
