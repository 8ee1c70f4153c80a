// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/maezuru/pkg/types"
)

// personalDataBlock matches the first fenced ```json block whose body is a
// brace-delimited object. The body match is non-greedy, so with several
// fenced blocks the first well-formed one wins.
var personalDataBlock = regexp.MustCompile("```json\\s*(\\{[\\s\\S]*?\\})\\s*```")

// errMalformedBlock reports a fenced block whose body is not a JSON object.
var errMalformedBlock = errors.New("structured block is not a JSON object")

// platformRule maps a URI substring to a platform label.
type platformRule struct {
	needles  []string
	platform string
}

// platformRules is checked in order; the first rule with a matching needle wins.
var platformRules = []platformRule{
	{[]string{"instagram.com"}, "Instagram"},
	{[]string{"facebook.com"}, "Facebook"},
	{[]string{"linkedin.com"}, "LinkedIn"},
	{[]string{"twitter.com", "x.com"}, "X / Twitter"},
	{[]string{"tiktok.com"}, "TikTok"},
	{[]string{"jusbrasil"}, "Processos (Jusbrasil)"},
	{[]string{"escavador"}, "Processos (Escavador)"},
	{[]string{"receitafederal"}, "Receita Federal"},
}

// PlatformWeb labels citations that match no known platform.
const PlatformWeb = "Web"

// Ingestion is the Response Ingestor's output for one raw response.
type Ingestion struct {
	Summary      string
	PersonalData *types.PersonalData
	Profiles     []types.DiscoveredProfile
	Sources      []types.SourceReference
}

// Ingest splits the structured block out of raw and classifies the citations
// against query. A malformed block is reported through blockErr while the
// rest of the ingestion still succeeds; the caller decides whether to log it.
func Ingest(query, raw string, sources []types.SourceReference) (ing Ingestion, blockErr error) {
	summary, pd, blockErr := ExtractPersonalData(raw)
	return Ingestion{
		Summary:      summary,
		PersonalData: pd,
		Profiles:     DiscoverProfiles(query, sources),
		Sources:      sources,
	}, blockErr
}

// ExtractPersonalData finds the fenced JSON block in raw and parses it.
//
// With no block, the trimmed raw text is returned and pd is nil. With a block
// that fails to parse, the trimmed raw text is returned (block included), pd
// is nil and err describes the failure. Only a successful parse strips the
// block from the summary.
func ExtractPersonalData(raw string) (summary string, pd *types.PersonalData, err error) {
	loc := personalDataBlock.FindStringSubmatchIndex(raw)
	if loc == nil {
		return strings.TrimSpace(raw), nil, nil
	}

	body := raw[loc[2]:loc[3]]
	pd, err = parsePersonalData(body)
	if err != nil {
		return strings.TrimSpace(raw), nil, err
	}

	summary = raw[:loc[0]] + raw[loc[1]:]
	return strings.TrimSpace(summary), pd, nil
}

// parsePersonalData reads body field by field. Fields of the wrong type are
// dropped rather than failing the whole block.
func parsePersonalData(body string) (*types.PersonalData, error) {
	if !gjson.Valid(body) {
		return nil, errors.New("structured block is not valid JSON")
	}
	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return nil, errMalformedBlock
	}

	return &types.PersonalData{
		FullName:   stringField(doc, "fullName"),
		CPF:        stringField(doc, "cpf"),
		BirthDate:  stringField(doc, "birthDate"),
		Location:   stringField(doc, "location"),
		Occupation: stringField(doc, "occupation"),
		Contact: types.Contact{
			Emails: stringList(doc, "contact.emails"),
			Phones: stringList(doc, "contact.phones"),
		},
		Family: types.Family{
			Spouse:   stringField(doc, "family.spouse"),
			Children: stringList(doc, "family.children"),
			Parents:  stringList(doc, "family.parents"),
			Others:   stringList(doc, "family.others"),
		},
	}, nil
}

func stringField(doc gjson.Result, path string) string {
	v := doc.Get(path)
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

func stringList(doc gjson.Result, path string) []string {
	v := doc.Get(path)
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, el := range v.Array() {
		if el.Type == gjson.String {
			out = append(out, el.Str)
		}
	}
	return out
}

// ClassifyPlatform maps a URI to a platform label by case-sensitive
// substring match against the fixed rule table.
func ClassifyPlatform(uri string) string {
	for _, rule := range platformRules {
		for _, needle := range rule.needles {
			if strings.Contains(uri, needle) {
				return rule.platform
			}
		}
	}
	return PlatformWeb
}

// Normalize removes all whitespace from s and lower-cases it. Punctuation
// is kept as is, so "jane.doe" and "jane doe" normalize differently.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// ScoreConfidence grades a citation against the query: High when the
// lower-cased URI contains the normalized query, Medium when the normalized
// title does, Low otherwise. An empty normalized query always scores Low
// rather than matching every URI; Scanner.Scan never produces one, since
// PrepareRequest and validation reject blank queries, so only direct calls
// reach that case.
func ScoreConfidence(query, uri, title string) types.Confidence {
	q := Normalize(query)
	if q == "" {
		return types.ConfidenceLow
	}
	if strings.Contains(strings.ToLower(uri), q) {
		return types.ConfidenceHigh
	}
	if strings.Contains(Normalize(title), q) {
		return types.ConfidenceMedium
	}
	return types.ConfidenceLow
}

// PivotQuery returns the last non-empty path segment of an absolute URL,
// path-unescaped, or "" when uri does not parse or has no path. It is the
// identifier a follow-up USERNAME scan pivots on, e.g. "janedoe" for
// "https://instagram.com/janedoe/".
func PivotQuery(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return ""
	}
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// DiscoverProfiles classifies and scores every web citation with a URI,
// keeping the first entry for each URI in citation order. Maps-only
// citations are skipped.
func DiscoverProfiles(query string, sources []types.SourceReference) []types.DiscoveredProfile {
	seen := make(map[string]bool)
	var profiles []types.DiscoveredProfile

	for _, src := range sources {
		if src.Web == nil || src.Web.URI == "" {
			continue
		}
		uri := src.Web.URI
		if seen[uri] {
			continue
		}
		seen[uri] = true

		profiles = append(profiles, types.DiscoveredProfile{
			Platform:   ClassifyPlatform(uri),
			URL:        uri,
			Confidence: ScoreConfidence(query, uri, src.Web.Title),
			Pivot:      PivotQuery(uri),
		})
	}

	return profiles
}
