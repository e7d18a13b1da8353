package harvest_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalogue-rag/internal/adapter/harvest"
	"catalogue-rag/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ukdsRecordTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <GetRecord>
    <record>
      <metadata>
        <codeBook>
          <stdyDscr>
            <citation>
              <titlStmt><titl>%s</titl></titlStmt>
              <distStmt><depDate>2019-06-01</depDate></distStmt>
              <holdings URI="https://example.org/holdings"/>
            </citation>
            <stdyInfo>
              <abstract>&lt;p&gt;A longitudinal survey.&lt;/p&gt; Abstract copyright UK Data Service and data collection copyright owner.</abstract>
              <abstract>Second paragraph.</abstract>
            </stdyInfo>
          </stdyDscr>
        </codeBook>
      </metadata>
    </record>
  </GetRecord>
</OAI-PMH>`

func TestUKDSClient_Harvest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		query := r.URL.Query()

		switch query.Get("verb") {
		case "ListIdentifiers":
			if query.Get("resumptionToken") == "" {
				fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <ListIdentifiers>
    <header><identifier>study-100</identifier></header>
    <header status="deleted"><identifier>study-101</identifier></header>
    <resumptionToken>page-2</resumptionToken>
  </ListIdentifiers>
</OAI-PMH>`)
			} else {
				assert.Equal(t, "page-2", query.Get("resumptionToken"))
				fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <ListIdentifiers>
    <header><identifier>study-102</identifier></header>
    <resumptionToken></resumptionToken>
  </ListIdentifiers>
</OAI-PMH>`)
			}
		case "GetRecord":
			fmt.Fprintf(w, ukdsRecordTemplate, "Study "+query.Get("identifier"))
		default:
			http.Error(w, "bad verb", http.StatusBadRequest)
		}
	}))
	defer server.Close()

	client := harvest.NewUKDSClient(server.URL, server.Client(), 1000, testLogger())
	docs, err := client.Harvest(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 2, "deleted studies are skipped")

	assert.Equal(t, "study-100", docs[0].ID)
	assert.Equal(t, "Study study-100", docs[0].Title)
	assert.Equal(t, domain.SourceUKDS, docs[0].Source)
	assert.Equal(t, "2019-06-01", docs[0].DateCreated)
	assert.Equal(t, "https://beta.ukdataservice.ac.uk/datacatalogue/studies/study?id=study-100", docs[0].URL)

	// Markup and the boilerplate copyright notice are stripped from abstracts.
	assert.Equal(t, "Dataset Title: Study study-100\n\nDescription: \n\nA longitudinal survey.\nSecond paragraph.", docs[0].Content)

	assert.Equal(t, "study-102", docs[1].ID)
}

func TestUKDSClient_RecordFailureSkipsStudy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		if r.URL.Query().Get("verb") == "ListIdentifiers" {
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <ListIdentifiers>
    <header><identifier>study-bad</identifier></header>
  </ListIdentifiers>
</OAI-PMH>`)
			return
		}
		fmt.Fprint(w, `not xml at all`)
	}))
	defer server.Close()

	client := harvest.NewUKDSClient(server.URL, server.Client(), 1000, testLogger())
	docs, err := client.Harvest(context.Background())

	require.NoError(t, err)
	assert.Empty(t, docs)
}
