package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"storyreel/internal/services"
)

// LoadCustomQueries reads a JSON object mapping segment indices to queries:
//
//	{"0": "city skyline at night", "3": "typing on a laptop"}
//
// Blank queries are skipped. Keys that are not non-negative integers are an error.
func LoadCustomQueries(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "custom queries", "read "+path, err)
	}
	return ParseCustomQueries(data)
}

// ParseCustomQueries decodes the custom query object in data.
func ParseCustomQueries(data []byte) (map[int]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "custom queries", "invalid JSON", nil)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "custom queries", "expected a JSON object keyed by segment index", nil)
	}

	out := make(map[int]string)
	var bad error
	doc.ForEach(func(key, value gjson.Result) bool {
		idx, err := strconv.Atoi(strings.TrimSpace(key.String()))
		if err != nil || idx < 0 {
			bad = services.Wrap(services.ErrConfiguration, "pipeline", "custom queries", fmt.Sprintf("key %q is not a segment index", key.String()), nil)
			return false
		}
		if value.Type != gjson.String {
			bad = services.Wrap(services.ErrConfiguration, "pipeline", "custom queries", fmt.Sprintf("query for segment %d is not a string", idx), nil)
			return false
		}
		if q := strings.TrimSpace(value.String()); q != "" {
			out[idx] = q
		}
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return out, nil
}
