package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"catalogue-rag/internal/domain"
)

var (
	spacesPattern   = regexp.MustCompile(`[ \t]+`)
	newlinesPattern = regexp.MustCompile(`\n{3,}`)
)

// CDRCCredentials authenticates the harvest session. Some dataset notes are
// only visible to logged-in users, so the client logs in before listing.
type CDRCCredentials struct {
	Username string
	Password string
}

// CDRCClient harvests dataset notes from the repository's CKAN package API.
type CDRCClient struct {
	BaseURL     string
	credentials CDRCCredentials
	client      *http.Client
	logger      *slog.Logger
}

func NewCDRCClient(baseURL string, credentials CDRCCredentials, client *http.Client, logger *slog.Logger) *CDRCClient {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if client.Jar == nil {
		// The login form sets a session cookie the package API reads.
		jar, err := cookiejar.New(nil)
		if err == nil {
			client.Jar = jar
		}
	}
	return &CDRCClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		credentials: credentials,
		client:      client,
		logger:      logger,
	}
}

func (c *CDRCClient) Source() domain.Source {
	return domain.SourceCDRC
}

type cdrcResource struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

type cdrcPackage struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Notes           string         `json:"notes"`
	URL             string         `json:"url"`
	MetadataCreated string         `json:"metadata_created"`
	Resources       []cdrcResource `json:"resources"`
}

type cdrcPackageListResponse struct {
	Result [][]cdrcPackage `json:"result"`
}

// Harvest logs in when credentials are configured, then pulls the full
// package list in one call. Packages without notes have nothing to index and
// are skipped.
func (c *CDRCClient) Harvest(ctx context.Context) ([]domain.NormalizedDocument, error) {
	if c.credentials.Username != "" {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}

	packages, err := c.listPackages(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("cdrc_listing_complete", slog.Int("package_count", len(packages)))

	var docs []domain.NormalizedDocument
	for _, pkg := range packages {
		if pending := pkg.pendingResources(); len(pending) > 0 {
			// Attached documents (PDFs etc.) are not parsed here; surface
			// them so a later pipeline can pick them up.
			c.logger.Debug("cdrc_resources_pending",
				slog.String("package_id", pkg.ID),
				slog.Int("resource_count", len(pending)))
		}
		notes := cleanNotes(pkg.Notes)
		if notes == "" {
			continue
		}
		docs = append(docs, domain.NormalizedDocument{
			ID:          pkg.ID,
			Title:       pkg.Title,
			URL:         pkg.URL,
			Source:      domain.SourceCDRC,
			DateCreated: pkg.MetadataCreated,
			Content:     notes,
		})
	}
	return docs, nil
}

func (c *CDRCClient) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("name", c.credentials.Username)
	form.Set("pass", c.credentials.Password)
	form.Set("form_id", "user_login")
	form.Set("op", "Log in")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/user/login", c.BaseURL), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("login returned %d", resp.StatusCode)
	}
	return nil
}

func (c *CDRCClient) listPackages(ctx context.Context) ([]cdrcPackage, error) {
	var packages []cdrcPackage
	err := withRetry(ctx, c.logger, "cdrc package list", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/api/3/action/current_package_list_with_resources", c.BaseURL), nil)
		if err != nil {
			return fmt.Errorf("failed to create package list request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch package list: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("package list returned %d: %s", resp.StatusCode, string(body))
		}

		var listResp cdrcPackageListResponse
		if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
			return fmt.Errorf("failed to decode package list: %w", err)
		}
		if len(listResp.Result) == 0 {
			return fmt.Errorf("package list result is empty")
		}
		packages = listResp.Result[0]
		return nil
	})
	return packages, err
}

// pendingResources returns the attached document files the harvest does not
// parse. Raw-file content stays out of the index.
func (p cdrcPackage) pendingResources() []cdrcResource {
	var pending []cdrcResource
	for _, res := range p.Resources {
		if strings.EqualFold(res.Format, "pdf") {
			pending = append(pending, res)
		}
	}
	return pending
}

// cleanNotes normalises whitespace without flattening paragraph breaks, which
// the chunker relies on.
func cleanNotes(notes string) string {
	notes = strings.ReplaceAll(notes, "\r\n", "\n")
	notes = spacesPattern.ReplaceAllString(notes, " ")
	notes = newlinesPattern.ReplaceAllString(notes, "\n\n")
	return strings.TrimSpace(notes)
}

var _ domain.Harvester = (*CDRCClient)(nil)
