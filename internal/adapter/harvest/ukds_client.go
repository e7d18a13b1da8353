package harvest

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"catalogue-rag/internal/domain"

	"golang.org/x/time/rate"
)

const ukdsCopyrightNotice = "Abstract copyright UK Data Service and data collection copyright owner."

var htmlTagPattern = regexp.MustCompile(`<[^<]+?>`)

// UKDSClient harvests study descriptions from the archive's OAI-PMH provider.
type UKDSClient struct {
	BaseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewUKDSClient(baseURL string, client *http.Client, requestsPerSecond float64, logger *slog.Logger) *UKDSClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &UKDSClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:  logger,
	}
}

func (c *UKDSClient) Source() domain.Source {
	return domain.SourceUKDS
}

type oaiHeader struct {
	Status     string `xml:"status,attr"`
	Identifier string `xml:"identifier"`
}

type oaiListIdentifiers struct {
	XMLName         xml.Name    `xml:"OAI-PMH"`
	Headers         []oaiHeader `xml:"ListIdentifiers>header"`
	ResumptionToken string      `xml:"ListIdentifiers>resumptionToken"`
}

type oaiGetRecord struct {
	XMLName xml.Name `xml:"OAI-PMH"`
	Study   struct {
		Citation struct {
			Title    string `xml:"titlStmt>titl"`
			DepDate  string `xml:"distStmt>depDate"`
			Holdings struct {
				URI string `xml:"URI,attr"`
			} `xml:"holdings"`
		} `xml:"citation"`
		Abstracts []string `xml:"stdyInfo>abstract"`
	} `xml:"GetRecord>record>metadata>codeBook>stdyDscr"`
}

// Harvest lists every study identifier via the resumption-token protocol,
// then fetches each study's DDI record. Deleted studies are skipped at the
// listing stage.
func (c *UKDSClient) Harvest(ctx context.Context) ([]domain.NormalizedDocument, error) {
	identifiers, err := c.listIdentifiers(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("ukds_listing_complete", slog.Int("identifier_count", len(identifiers)))

	var docs []domain.NormalizedDocument
	for _, identifier := range identifiers {
		doc, err := c.fetchRecord(ctx, identifier)
		if err != nil {
			c.logger.Error("ukds_record_skipped",
				slog.String("identifier", identifier),
				slog.String("error", err.Error()))
			continue
		}
		if doc.Title == "" && doc.Content == "" {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *UKDSClient) listIdentifiers(ctx context.Context) ([]string, error) {
	params := url.Values{}
	params.Set("verb", "ListIdentifiers")
	params.Set("metadataPrefix", "ddi")
	params.Set("set", "DataCollections")

	var identifiers []string
	for {
		var page oaiListIdentifiers
		err := withRetry(ctx, c.logger, "ukds list identifiers", func() error {
			body, err := c.get(ctx, params)
			if err != nil {
				return err
			}
			page = oaiListIdentifiers{}
			if err := xml.Unmarshal(body, &page); err != nil {
				return fmt.Errorf("failed to parse identifier listing: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		for _, header := range page.Headers {
			if header.Status == "deleted" {
				continue
			}
			if header.Identifier != "" {
				identifiers = append(identifiers, header.Identifier)
			}
		}

		token := strings.TrimSpace(page.ResumptionToken)
		if token == "" {
			return identifiers, nil
		}
		params = url.Values{}
		params.Set("verb", "ListIdentifiers")
		params.Set("resumptionToken", token)
	}
}

func (c *UKDSClient) fetchRecord(ctx context.Context, identifier string) (domain.NormalizedDocument, error) {
	params := url.Values{}
	params.Set("verb", "GetRecord")
	params.Set("identifier", identifier)
	params.Set("metadataPrefix", "ddi")

	var record oaiGetRecord
	err := withRetry(ctx, c.logger, fmt.Sprintf("ukds record %s", identifier), func() error {
		body, err := c.get(ctx, params)
		if err != nil {
			return err
		}
		record = oaiGetRecord{}
		if err := xml.Unmarshal(body, &record); err != nil {
			return fmt.Errorf("failed to parse study record: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.NormalizedDocument{}, err
	}

	abstract := c.cleanAbstract(record.Study.Abstracts)
	title := strings.TrimSpace(record.Study.Citation.Title)
	studyURL := fmt.Sprintf("https://beta.ukdataservice.ac.uk/datacatalogue/studies/study?id=%s",
		url.QueryEscape(identifier))

	return domain.NormalizedDocument{
		ID:          identifier,
		Title:       title,
		URL:         studyURL,
		Source:      domain.SourceUKDS,
		DateCreated: strings.TrimSpace(record.Study.Citation.DepDate),
		Content:     fmt.Sprintf("Dataset Title: %s\n\nDescription: \n\n%s", title, abstract),
	}, nil
}

// cleanAbstract strips markup from the DDI abstract fields and drops the
// boilerplate copyright notice every record carries.
func (c *UKDSClient) cleanAbstract(abstracts []string) string {
	cleaned := make([]string, 0, len(abstracts))
	for _, a := range abstracts {
		text := htmlTagPattern.ReplaceAllString(a, "")
		text = strings.ReplaceAll(text, ukdsCopyrightNotice, "")
		text = strings.TrimSpace(text)
		if text != "" {
			cleaned = append(cleaned, text)
		}
	}
	return strings.Join(cleaned, "\n")
}

func (c *UKDSClient) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?%s", c.BaseURL, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}
	return body, nil
}

var _ domain.Harvester = (*UKDSClient)(nil)
