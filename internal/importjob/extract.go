package importjob

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cuongbtq/leadgen-crm/internal/phantombuster"
)

// resultLocation is where a finished phantom stored its data
type resultLocation struct {
	URL    string
	Format phantombuster.ResultFormat
}

var (
	csvResultKeys  = []string{"csvurl", "csv", "csvfileurl"}
	jsonResultKeys = []string{"jsonurl", "json", "jsonfileurl"}

	savedAtPattern = regexp.MustCompile(`(?i)\b(csv|json) saved at:?\s+(https?://\S+)`)
)

// resolveResultURL finds the result artifact of a finished container. The
// structured result object wins over the log; CSV wins over JSON.
func resolveResultURL(st *phantombuster.ContainerStatus) (resultLocation, bool) {
	if loc, ok := fromResultObject(st.ResultObject); ok {
		return loc, true
	}
	return fromOutput(st.Output)
}

func fromResultObject(raw string) (resultLocation, bool) {
	if strings.TrimSpace(raw) == "" {
		return resultLocation{}, false
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return resultLocation{}, false
	}

	var candidates []map[string]any
	switch v := decoded.(type) {
	case map[string]any:
		candidates = append(candidates, v)
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				candidates = append(candidates, obj)
			}
		}
	}

	for _, want := range []struct {
		keys   []string
		format phantombuster.ResultFormat
	}{
		{csvResultKeys, phantombuster.FormatCSV},
		{jsonResultKeys, phantombuster.FormatJSON},
	} {
		for _, obj := range candidates {
			if url := lookupURL(obj, want.keys); url != "" {
				return resultLocation{URL: url, Format: want.format}, true
			}
		}
	}

	return resultLocation{}, false
}

func lookupURL(obj map[string]any, keys []string) string {
	for k, v := range obj {
		s, ok := v.(string)
		if !ok || !isHTTPURL(s) {
			continue
		}
		lk := strings.ToLower(k)
		for _, want := range keys {
			if lk == want {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func fromOutput(output string) (resultLocation, bool) {
	var jsonLoc resultLocation
	for _, m := range savedAtPattern.FindAllStringSubmatch(output, -1) {
		url := strings.TrimRight(m[2], `.,;)"'`)
		if strings.EqualFold(m[1], "csv") {
			return resultLocation{URL: url, Format: phantombuster.FormatCSV}, true
		}
		if jsonLoc.URL == "" {
			jsonLoc = resultLocation{URL: url, Format: phantombuster.FormatJSON}
		}
	}
	return jsonLoc, jsonLoc.URL != ""
}

func isHTTPURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
