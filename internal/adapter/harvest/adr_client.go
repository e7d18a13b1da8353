package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"catalogue-rag/internal/domain"

	"golang.org/x/time/rate"
)

const (
	adrPageSize   = 100
	adrAPIVersion = "2.0"
)

// ADRClient harvests dataset descriptions from the administrative-data
// registry's paginated catalogue API.
type ADRClient struct {
	BaseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewADRClient builds a harvester for the registry API. requestsPerSecond
// throttles the per-dataset detail fetches so a full harvest stays polite.
func NewADRClient(baseURL string, client *http.Client, requestsPerSecond float64, logger *slog.Logger) *ADRClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &ADRClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:  logger,
	}
}

func (c *ADRClient) Source() domain.Source {
	return domain.SourceADR
}

type adrListEntry struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	SearchResultType string `json:"searchResultType"`
	Origin           struct {
		ID string `json:"id"`
	} `json:"origin"`
}

type adrListResponse struct {
	Content []adrListEntry `json:"content"`
}

type adrDatasetResponse struct {
	Origin struct {
		Name string `json:"name"`
		Link string `json:"link"`
	} `json:"origin"`
	Summary struct {
		Abstract        string `json:"abstract"`
		PublicationDate string `json:"publicationDate"`
	} `json:"summary"`
	Documentation struct {
		Description string `json:"description"`
	} `json:"documentation"`
}

// Harvest pages through the catalogue listing, then fetches the detail record
// of every physical dataset. Dataset ids are composite (id-originId) because
// the registry scopes dataset ids to their origin.
func (c *ADRClient) Harvest(ctx context.Context) ([]domain.NormalizedDocument, error) {
	var entries []adrListEntry
	for page := 1; ; page++ {
		pageEntries, err := c.listPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(pageEntries) == 0 {
			c.logger.Info("adr_listing_complete",
				slog.Int("pages", page-1),
				slog.Int("entry_count", len(entries)))
			break
		}
		entries = append(entries, pageEntries...)
	}

	var docs []domain.NormalizedDocument
	for _, entry := range entries {
		if entry.SearchResultType != "PHYSICAL" {
			continue
		}
		doc, err := c.fetchDataset(ctx, entry)
		if err != nil {
			c.logger.Error("adr_dataset_skipped",
				slog.String("dataset_id", entry.ID),
				slog.String("error", err.Error()))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *ADRClient) listPage(ctx context.Context, page int) ([]adrListEntry, error) {
	var entries []adrListEntry
	err := withRetry(ctx, c.logger, fmt.Sprintf("adr list page %d", page), func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		params := url.Values{}
		params.Set("pageSize", strconv.Itoa(adrPageSize))
		params.Set("pageNumber", strconv.Itoa(page))
		params.Set("include", "dataset::dataelement::dataclass")
		params.Set("state", "START")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/dataset?%s", c.BaseURL, params.Encode()), nil)
		if err != nil {
			return fmt.Errorf("failed to create listing request: %w", err)
		}
		req.Header.Set("X-API-Version", adrAPIVersion)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch listing: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("listing returned %d: %s", resp.StatusCode, string(body))
		}

		var listResp adrListResponse
		if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
			return fmt.Errorf("failed to decode listing: %w", err)
		}
		entries = listResp.Content
		return nil
	})
	return entries, err
}

func (c *ADRClient) fetchDataset(ctx context.Context, entry adrListEntry) (domain.NormalizedDocument, error) {
	var detail adrDatasetResponse
	err := withRetry(ctx, c.logger, fmt.Sprintf("adr dataset %s", entry.ID), func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		reqURL := fmt.Sprintf("%s/dataset/%s?originId=%s", c.BaseURL,
			url.PathEscape(entry.ID), url.QueryEscape(entry.Origin.ID))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create dataset request: %w", err)
		}
		req.Header.Set("X-API-Version", adrAPIVersion)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch dataset: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("dataset fetch returned %d: %s", resp.StatusCode, string(body))
		}

		if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
			return fmt.Errorf("failed to decode dataset: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.NormalizedDocument{}, err
	}

	content := fmt.Sprintf("Dataset Title: %s\n\nDescription: \n\n%s\n\nAbstract: \n\n%s",
		entry.Title, detail.Documentation.Description, detail.Summary.Abstract)

	return domain.NormalizedDocument{
		ID:          fmt.Sprintf("%s-%s", entry.ID, entry.Origin.ID),
		Title:       entry.Title,
		URL:         detail.Origin.Link,
		Source:      domain.SourceADR,
		DateCreated: detail.Summary.PublicationDate,
		Content:     content,
	}, nil
}

var _ domain.Harvester = (*ADRClient)(nil)
