package leads

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
)

// Format is the shape of a result artifact
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var (
	// ErrMalformedPayload is returned when an artifact is not in an understood shape
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUnsupportedFormat is returned for formats other than csv and json
	ErrUnsupportedFormat = errors.New("unsupported result format")
)

// ParseResult holds the valid records of an artifact, in row order, and the
// number of rows that were skipped.
type ParseResult struct {
	Records   []Record
	Malformed int
}

// All iterates the records. The sequence is buffered, so it can be ranged
// over more than once.
func (p *ParseResult) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range p.Records {
			if !yield(r) {
				return
			}
		}
	}
}

// Parse normalizes a CSV or JSON artifact into lead records. A bad row never
// fails the parse; it is counted in Malformed instead.
func Parse(payload []byte, format Format, source string) (*ParseResult, error) {
	payload = bytes.TrimPrefix(payload, []byte("\xef\xbb\xbf"))

	switch format {
	case FormatCSV:
		return parseCSV(payload, source)
	case FormatJSON:
		return parseJSON(payload, source)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func parseCSV(payload []byte, source string) (*ParseResult, error) {
	result := &ParseResult{}

	r := csv.NewReader(bytes.NewReader(payload))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable csv header: %v", ErrMalformedPayload, err)
	}
	for i, h := range header {
		header[i] = headerKey(h)
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Malformed++
				continue
			}
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		if len(row) != len(header) {
			result.Malformed++
			continue
		}

		fields := make(map[string]string, len(header))
		for i, key := range header {
			fields[key] = row[i]
		}
		result.add(recordFromFields(fields, source))
	}

	return result, nil
}

func parseJSON(payload []byte, source string) (*ParseResult, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array: %v", ErrMalformedPayload, err)
	}
	if rows == nil {
		return nil, fmt.Errorf("%w: expected a JSON array, got null", ErrMalformedPayload)
	}

	result := &ParseResult{}
	for _, raw := range rows {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			result.Malformed++
			continue
		}

		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			if s, ok := scalarString(v); ok {
				fields[headerKey(k)] = s
			}
		}
		result.add(recordFromFields(fields, source))
	}

	return result, nil
}

// add keeps rows that satisfy the identity rule and counts the rest
func (p *ParseResult) add(rec Record) {
	if rec.IdentityKey() == "" {
		p.Malformed++
		return
	}
	p.Records = append(p.Records, rec)
}

// Header aliases, in order of preference. Keys are compared after headerKey.
var fieldAliases = struct {
	linkedin, fullName, firstName, lastName, title, company, location, industry, email, phone, degree []string
}{
	linkedin:  []string{"linkedinprofileurl", "profileurl", "linkedinurl", "defaultprofileurl", "linkedin", "profilelink", "url"},
	fullName:  []string{"fullname", "name"},
	firstName: []string{"firstname"},
	lastName:  []string{"lastname"},
	title:     []string{"title", "jobtitle", "position", "headline"},
	company:   []string{"companyname", "company", "currentcompany", "organization"},
	location:  []string{"location", "city"},
	industry:  []string{"industry", "companyindustry"},
	email:     []string{"email", "emailaddress", "mail", "mailfromdropcontact"},
	phone:     []string{"phone", "phonenumber", "phonenumbers"},
	degree:    []string{"connectiondegree", "degree"},
}

func recordFromFields(fields map[string]string, source string) Record {
	pick := func(keys []string) string {
		for _, k := range keys {
			if v := CleanText(fields[k]); v != "" {
				return v
			}
		}
		return ""
	}

	fullName := pick(fieldAliases.fullName)
	if fullName == "" {
		fullName = CleanText(pick(fieldAliases.firstName) + " " + pick(fieldAliases.lastName))
	}

	return Record{
		LinkedinURL:      profileURL(fields),
		FullName:         fullName,
		Title:            pick(fieldAliases.title),
		Company:          pick(fieldAliases.company),
		Location:         pick(fieldAliases.location),
		Industry:         pick(fieldAliases.industry),
		Email:            NormalizeEmail(pick(fieldAliases.email)),
		Phone:            NormalizePhone(pick(fieldAliases.phone)),
		ConnectionDegree: pick(fieldAliases.degree),
		Source:           source,
	}
}

// profileURL returns the first alias column holding a LinkedIn URL, skipping
// placeholders such as "N/A"
func profileURL(fields map[string]string) string {
	for _, k := range fieldAliases.linkedin {
		if u := NormalizeLinkedinURL(fields[k]); u != "" {
			return u
		}
	}
	return ""
}

// headerKey folds "Profile URL", "profile_url" and "profileUrl" together
func headerKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
