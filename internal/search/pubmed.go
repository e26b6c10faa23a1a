// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/deep-research/pkg/types"
)

// pubmedAPIBase is the NCBI E-utilities root. Declared as a var so tests
// can substitute an httptest server.
var pubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// NCBI request budgets with and without an API key.
const (
	pubmedRateAnonymous = 3
	pubmedRateWithKey   = 10
)

// Open bounds used when only one end of a date range is given.
const (
	pubmedMinDate = "1900/01/01"
	pubmedMaxDate = "3000/12/31"
)

// Pubmed queries PubMed in two phases: esearch resolves ids, efetch returns
// the full records.
type Pubmed struct {
	apiKey  string
	http    HTTPOptions
	limiter *rate.Limiter
}

// NewPubmed returns a biomedical adapter. The API key is optional and only
// raises the request budget.
func NewPubmed(apiKey string, opts HTTPOptions) *Pubmed {
	perSecond := pubmedRateAnonymous
	if apiKey != "" {
		perSecond = pubmedRateWithKey
	}
	return &Pubmed{
		apiKey:  apiKey,
		http:    opts,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Name returns the provider tag.
func (p *Pubmed) Name() types.Source { return types.SourcePubmed }

// Search resolves matching PMIDs and fetches their records. The fetch phase
// is skipped when the search phase finds nothing.
func (p *Pubmed) Search(ctx context.Context, q ProviderQuery) ([]types.Result, error) {
	ids, err := p.searchIDs(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []types.Result{}, nil
	}
	return p.fetchRecords(ctx, ids)
}

func (p *Pubmed) searchIDs(ctx context.Context, q ProviderQuery) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", pubmedTerm(q))
	params.Set("retmax", strconv.Itoa(q.MaxResults))
	params.Set("retstart", "0")
	params.Set("retmode", "json")
	if p.apiKey != "" {
		params.Set("api_key", p.apiKey)
	}
	if q.SortBy == types.SortDate {
		params.Set("sort", "pub_date")
	}

	body, err := p.call(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, &types.ProviderError{Source: types.SourcePubmed, Message: fmt.Sprintf("PubMed search API error: %v", err), Err: err}
	}

	var data struct {
		ESearchResult struct {
			IDList    []string        `json:"idlist"`
			ErrorList json.RawMessage `json:"errorlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &types.ProviderError{Source: types.SourcePubmed, Message: "parsing PubMed search response", Err: err}
	}
	if msg := pubmedErrorList(data.ESearchResult.ErrorList); msg != "" {
		return nil, &types.ProviderError{Source: types.SourcePubmed, Message: "PubMed API error: " + msg}
	}
	return data.ESearchResult.IDList, nil
}

func (p *Pubmed) fetchRecords(ctx context.Context, ids []string) ([]types.Result, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")
	if p.apiKey != "" {
		params.Set("api_key", p.apiKey)
	}

	body, err := p.call(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, &types.ProviderError{Source: types.SourcePubmed, Message: fmt.Sprintf("PubMed fetch API error: %v", err), Err: err}
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, &types.ProviderError{Source: types.SourcePubmed, Message: "failed to parse PubMed response", Err: err}
	}

	results := make([]types.Result, 0, len(set.Articles))
	for _, a := range set.Articles {
		results = append(results, a.toResult())
	}
	return results, nil
}

func (p *Pubmed) call(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return p.http.get(ctx, pubmedAPIBase+path+"?"+params.Encode())
}

// pubmedTerm appends a date-type-qualified range filter to the query when
// either bound is set.
func pubmedTerm(q ProviderQuery) string {
	if q.From.IsZero() && q.To.IsZero() {
		return q.Query
	}
	dateType := q.Filters.DateType
	if dateType == "" {
		dateType = "pdat"
	}
	minDate, maxDate := pubmedMinDate, pubmedMaxDate
	if !q.From.IsZero() {
		minDate = q.From.Format("2006/01/02")
	}
	if !q.To.IsZero() {
		maxDate = q.To.Format("2006/01/02")
	}
	return fmt.Sprintf("%s AND %s:%s[%s]", q.Query, minDate, maxDate, dateType)
}

// pubmedErrorList renders a non-empty esearch errorlist, or "" when the list
// is absent or carries only empty entries.
func pubmedErrorList(raw json.RawMessage) string {
	if isEmptyJSON(raw) {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return string(raw)
	}
	var parts []string
	for name, v := range fields {
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			if len(list) > 0 {
				parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(list, ", ")))
			}
			continue
		}
		if !isEmptyJSON(v) {
			parts = append(parts, fmt.Sprintf("%s: %s", name, string(v)))
		}
	}
	return strings.Join(parts, "; ")
}

// efetch XML structures. Only the fields the adapter reads are declared.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Journal struct {
				Title   string `xml:"Title"`
				PubDate struct {
					Year        string `xml:"Year"`
					Month       string `xml:"Month"`
					Day         string `xml:"Day"`
					MedlineDate string `xml:"MedlineDate"`
				} `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
			Title    innerText   `xml:"ArticleTitle"`
			Abstract []innerText `xml:"Abstract>AbstractText"`
			Authors  []struct {
				LastName string `xml:"LastName"`
				ForeName string `xml:"ForeName"`
				Initials string `xml:"Initials"`
			} `xml:"AuthorList>Author"`
			ELocationIDs []struct {
				Type  string `xml:"EIdType,attr"`
				Value string `xml:",chardata"`
			} `xml:"ELocationID"`
		} `xml:"Article"`
		Keywords []innerText `xml:"KeywordList>Keyword"`
	} `xml:"MedlineCitation"`
	ArticleIDs []struct {
		Type  string `xml:"IdType,attr"`
		Value string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

// innerText collects all character data of an element, including text inside
// inline markup such as <i> or <sup>.
type innerText string

func (t *innerText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			b.Write(v)
		case xml.EndElement:
			if v.Name == start.Name {
				*t = innerText(b.String())
				return nil
			}
		}
	}
}

func (a pubmedArticle) toResult() types.PubmedResult {
	c := a.Citation
	r := types.PubmedResult{
		Title:     strings.TrimSpace(string(c.Article.Title)),
		Journal:   strings.TrimSpace(c.Article.Journal.Title),
		PMID:      strings.TrimSpace(c.PMID),
		Published: pubmedDate(c.Article.Journal.PubDate.Year, c.Article.Journal.PubDate.Month, c.Article.Journal.PubDate.Day, c.Article.Journal.PubDate.MedlineDate),
		Authors:   []string{},
		Keywords:  []string{},
	}
	if r.Title == "" {
		r.Title = "Untitled"
	}
	if r.Journal == "" {
		r.Journal = "Unknown Journal"
	}
	if r.PMID != "" {
		r.URL = fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", r.PMID)
	}

	for _, au := range c.Article.Authors {
		last := strings.TrimSpace(au.LastName)
		if last == "" {
			continue
		}
		first := strings.TrimSpace(au.ForeName)
		if first == "" {
			first = strings.TrimSpace(au.Initials)
		}
		r.Authors = append(r.Authors, strings.TrimSpace(first+" "+last))
	}

	var abstract []string
	for _, part := range c.Article.Abstract {
		if s := strings.TrimSpace(string(part)); s != "" {
			abstract = append(abstract, s)
		}
	}
	r.Abstract = strings.Join(abstract, " ")

	for _, e := range c.Article.ELocationIDs {
		if e.Type == "doi" {
			r.DOI = strings.TrimSpace(e.Value)
			break
		}
	}
	for _, id := range a.ArticleIDs {
		if id.Type == "pmc" {
			r.PMCID = strings.TrimSpace(id.Value)
			break
		}
	}
	for _, kw := range c.Keywords {
		if s := strings.TrimSpace(string(kw)); s != "" {
			r.Keywords = append(r.Keywords, s)
		}
	}
	return r
}

// pubmedDate joins the non-empty year, month, and day fragments with "-".
// Records with only a free-form MedlineDate keep that text.
func pubmedDate(year, month, day, medline string) string {
	var parts []string
	for _, f := range []string{year, month, day} {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(medline)
	}
	return strings.Join(parts, "-")
}

// pubmedDateLayouts are the shapes pubmedDate produces from PubDate fragments.
var pubmedDateLayouts = []string{
	"2006-Jan-2",
	"2006-Jan-02",
	"2006-1-2",
	"2006-01-02",
	"2006-Jan",
	"2006-01",
	"2006",
}

// parsePubmedDate parses an assembled publish date. ok is false when s is
// empty or matches no known layout.
func parsePubmedDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range pubmedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// MedlineDate values such as "1998 Dec-1999 Jan" start with a year.
	if len(s) >= 4 {
		if t, err := time.Parse("2006", s[:4]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
