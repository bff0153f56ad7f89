package conceptmap

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Candidate is one cross-system code proposed for a source concept.
type Candidate struct {
	Code    string
	Display string
}

// Mapper resolves a NAMASTE term to candidate ICD-11 TM2 codes. The
// simulated and WHO-backed strategies share this interface so the
// synthesizer never knows which one it is driving.
type Mapper interface {
	Lookup(ctx context.Context, code, display string) ([]Candidate, error)
}

// SimulatedMapper derives a deterministic fake TM2 code from the
// source code. Useful for demos and offline runs.
type SimulatedMapper struct{}

func (SimulatedMapper) Lookup(_ context.Context, code, display string) ([]Candidate, error) {
	h := strings.ToUpper(hex.EncodeToString([]byte(code)))
	if len(h) > 6 {
		h = h[:6]
	}
	return []Candidate{{
		Code:    "TM2_" + h,
		Display: fmt.Sprintf("Simulated TM2 match for %s", display),
	}}, nil
}

// WHOMapper queries the WHO ICD-11 API for TM2 candidates.
type WHOMapper struct {
	baseURL string
	client  *http.Client
}

func NewWHOMapper(baseURL string, timeout time.Duration) *WHOMapper {
	return &WHOMapper{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// whoSearchResponse mirrors the ICD-11 flexisearch response.
type whoSearchResponse struct {
	DestinationEntities []struct {
		TheCode string `json:"theCode"`
		Title   string `json:"title"`
	} `json:"destinationEntities"`
}

func (m *WHOMapper) Lookup(ctx context.Context, code, display string) ([]Candidate, error) {
	q := display
	if q == "" {
		q = code
	}
	endpoint := m.baseURL + "/mms/search?q=" + url.QueryEscape(q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build WHO request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("API-Version", "v2")
	req.Header.Set("Accept-Language", "en")

	res, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("WHO lookup %s: %w", code, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("WHO lookup %s: status %d", code, res.StatusCode)
	}

	var parsed whoSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode WHO response: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.DestinationEntities))
	for _, e := range parsed.DestinationEntities {
		if e.TheCode == "" {
			continue
		}
		candidates = append(candidates, Candidate{Code: e.TheCode, Display: stripMarkup(e.Title)})
	}
	return candidates, nil
}

// stripMarkup removes the <em> highlight tags flexisearch embeds in
// titles.
func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "<em class='found'>", "")
	return strings.ReplaceAll(s, "</em>", "")
}
