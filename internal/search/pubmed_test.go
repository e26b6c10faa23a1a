// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

const efetchFixture = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation Status="MEDLINE" Owner="NLM">
      <PMID Version="1">31452104</PMID>
      <Article PubModel="Print">
        <ELocationID EIdType="pii" ValidYN="Y">S0092</ELocationID>
        <ELocationID EIdType="doi" ValidYN="Y">10.1016/j.cell.2019.07.010</ELocationID>
        <Journal>
          <Title>Cell</Title>
          <JournalIssue CitedMedium="Internet">
            <PubDate><Year>2019</Year><Month>Aug</Month><Day>22</Day></PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>Genome editing with <i>CRISPR</i> systems.</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">First part.</AbstractText>
          <AbstractText Label="RESULTS">Second <b>part</b>.</AbstractText>
        </Abstract>
        <AuthorList CompleteYN="Y">
          <Author><LastName>Doudna</LastName><ForeName>Jennifer A</ForeName><Initials>JA</Initials></Author>
          <Author><LastName>Zhang</LastName><Initials>F</Initials></Author>
          <Author><CollectiveName>CRISPR Consortium</CollectiveName></Author>
        </AuthorList>
      </Article>
      <KeywordList Owner="NOTNLM">
        <Keyword MajorTopicYN="N">CRISPR</Keyword>
        <Keyword MajorTopicYN="N">gene editing</Keyword>
      </KeywordList>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">31452104</ArticleId>
        <ArticleId IdType="pmc">PMC6789</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>100</PMID>
      <Article>
        <Journal>
          <JournalIssue><PubDate><MedlineDate>1998 Dec-1999 Jan</MedlineDate></PubDate></JournalIssue>
        </Journal>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

// pubmedServer serves esearch and efetch and records their requests.
type pubmedServer struct {
	mu       sync.Mutex
	searches []*http.Request
	fetches  []*http.Request
}

func servePubmed(t *testing.T, esearch string, efetch string) (*httptest.Server, *pubmedServer) {
	t.Helper()
	ps := &pubmedServer{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			ps.searches = append(ps.searches, r.Clone(context.Background()))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, esearch)
		case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
			ps.fetches = append(ps.fetches, r.Clone(context.Background()))
			w.Header().Set("Content-Type", "text/xml")
			fmt.Fprint(w, efetch)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)

	old := pubmedAPIBase
	pubmedAPIBase = ts.URL
	t.Cleanup(func() { pubmedAPIBase = old })
	return ts, ps
}

func TestPubmedSearchTwoPhase(t *testing.T) {
	ts, ps := servePubmed(t, `{"esearchresult":{"count":"2","idlist":["31452104","100"]}}`, efetchFixture)
	p := NewPubmed("ncbi-key", HTTPOptions{Client: ts.Client()})

	results, err := p.Search(context.Background(), ProviderQuery{Query: "crispr", MaxResults: 5, SortBy: types.SortDate})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ps.searches) != 1 || len(ps.fetches) != 1 {
		t.Fatalf("searches=%d fetches=%d, want 1 each", len(ps.searches), len(ps.fetches))
	}

	sq := ps.searches[0].URL.Query()
	for k, v := range map[string]string{
		"db": "pubmed", "term": "crispr", "retmax": "5", "retstart": "0",
		"retmode": "json", "api_key": "ncbi-key", "sort": "pub_date",
	} {
		if got := sq.Get(k); got != v {
			t.Errorf("esearch %s = %q, want %q", k, got, v)
		}
	}
	fq := ps.fetches[0].URL.Query()
	if got := fq.Get("id"); got != "31452104,100" {
		t.Errorf("efetch id = %q", got)
	}
	if fq.Get("retmode") != "xml" || fq.Get("rettype") != "abstract" {
		t.Errorf("efetch params = %v", fq)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	r := results[0].(types.PubmedResult)
	if r.Title != "Genome editing with CRISPR systems." {
		t.Errorf("Title = %q", r.Title)
	}
	if r.Abstract != "First part. Second part." {
		t.Errorf("Abstract = %q", r.Abstract)
	}
	if want := []string{"Jennifer A Doudna", "F Zhang"}; strings.Join(r.Authors, "|") != strings.Join(want, "|") {
		t.Errorf("Authors = %v, want %v", r.Authors, want)
	}
	if r.Journal != "Cell" || r.Published != "2019-Aug-22" {
		t.Errorf("Journal/Published = %q %q", r.Journal, r.Published)
	}
	if r.PMID != "31452104" || r.PMCID != "PMC6789" || r.DOI != "10.1016/j.cell.2019.07.010" {
		t.Errorf("ids = %q %q %q", r.PMID, r.PMCID, r.DOI)
	}
	if r.URL != "https://pubmed.ncbi.nlm.nih.gov/31452104/" {
		t.Errorf("URL = %q", r.URL)
	}
	if len(r.Keywords) != 2 || r.Keywords[1] != "gene editing" {
		t.Errorf("Keywords = %v", r.Keywords)
	}

	r2 := results[1].(types.PubmedResult)
	if r2.Title != "Untitled" || r2.Journal != "Unknown Journal" {
		t.Errorf("defaults = %q %q", r2.Title, r2.Journal)
	}
	if r2.Published != "1998 Dec-1999 Jan" {
		t.Errorf("Published = %q, want MedlineDate fallback", r2.Published)
	}
	if r2.DOI != "" || r2.PMCID != "" {
		t.Errorf("optional ids should be empty: %q %q", r2.DOI, r2.PMCID)
	}
}

func TestPubmedSearchSkipsFetchWhenNoIDs(t *testing.T) {
	ts, ps := servePubmed(t, `{"esearchresult":{"count":"0","idlist":[]}}`, "")
	p := NewPubmed("", HTTPOptions{Client: ts.Client()})

	results, err := p.Search(context.Background(), ProviderQuery{Query: "nothing", MaxResults: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("results = %v, want empty non-nil", results)
	}
	if len(ps.fetches) != 0 {
		t.Errorf("efetch called %d times, want 0", len(ps.fetches))
	}
	if ps.searches[0].URL.Query().Has("api_key") {
		t.Error("api_key should be omitted without a key")
	}
}

func TestPubmedSearchErrorList(t *testing.T) {
	ts, _ := servePubmed(t, `{"esearchresult":{"idlist":[],"errorlist":{"phrasesnotfound":["zzqx"],"fieldsnotfound":[]}}}`, "")
	p := NewPubmed("", HTTPOptions{Client: ts.Client()})

	_, err := p.Search(context.Background(), ProviderQuery{Query: "zzqx", MaxResults: 5})
	var pe *types.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if !strings.Contains(pe.Message, "phrasesnotfound: zzqx") {
		t.Errorf("Message = %q", pe.Message)
	}
}

func TestPubmedSearchEmptyErrorListIsNotAnError(t *testing.T) {
	ts, _ := servePubmed(t, `{"esearchresult":{"idlist":[],"errorlist":{"phrasesnotfound":[],"fieldsnotfound":[]}}}`, "")
	p := NewPubmed("", HTTPOptions{Client: ts.Client()})

	if _, err := p.Search(context.Background(), ProviderQuery{Query: "q", MaxResults: 5}); err != nil {
		t.Fatalf("Search: %v", err)
	}
}

func TestPubmedSearchMalformedXML(t *testing.T) {
	ts, _ := servePubmed(t, `{"esearchresult":{"idlist":["1"]}}`, "<PubmedArticleSet><PubmedArticle>")
	p := NewPubmed("", HTTPOptions{Client: ts.Client()})

	_, err := p.Search(context.Background(), ProviderQuery{Query: "q", MaxResults: 5})
	var pe *types.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if pe.Message != "failed to parse PubMed response" {
		t.Errorf("Message = %q", pe.Message)
	}
}

func TestPubmedTerm(t *testing.T) {
	d := func(y, m, day int) time.Time { return time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name string
		q    ProviderQuery
		want string
	}{
		{"no dates", ProviderQuery{Query: "asthma"}, "asthma"},
		{"both bounds", ProviderQuery{Query: "asthma", From: d(2020, 1, 2), To: d(2021, 3, 4)}, "asthma AND 2020/01/02:2021/03/04[pdat]"},
		{"open end", ProviderQuery{Query: "asthma", From: d(2020, 1, 2)}, "asthma AND 2020/01/02:3000/12/31[pdat]"},
		{"open start", ProviderQuery{Query: "asthma", To: d(2021, 3, 4)}, "asthma AND 1900/01/01:2021/03/04[pdat]"},
		{"date type", ProviderQuery{Query: "asthma", To: d(2021, 3, 4), Filters: types.Filters{DateType: "edat"}}, "asthma AND 1900/01/01:2021/03/04[edat]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pubmedTerm(tt.q); got != tt.want {
				t.Errorf("pubmedTerm() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPubmedErrorList(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{``, ""},
		{`null`, ""},
		{`{}`, ""},
		{`{"phrasesnotfound":[]}`, ""},
		{`{"phrasesnotfound":["a","b"]}`, "phrasesnotfound: a, b"},
	}
	for _, tt := range tests {
		if got := pubmedErrorList(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("pubmedErrorList(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestPubmedDate(t *testing.T) {
	tests := []struct {
		year, month, day, medline, want string
	}{
		{"2019", "Aug", "22", "", "2019-Aug-22"},
		{"2019", "Aug", "", "", "2019-Aug"},
		{"2019", "", "", "", "2019"},
		{"", "", "", "2001 Spring", "2001 Spring"},
		{"", "", "", "", ""},
	}
	for _, tt := range tests {
		if got := pubmedDate(tt.year, tt.month, tt.day, tt.medline); got != tt.want {
			t.Errorf("pubmedDate(%q,%q,%q,%q) = %q, want %q", tt.year, tt.month, tt.day, tt.medline, got, tt.want)
		}
	}
}
