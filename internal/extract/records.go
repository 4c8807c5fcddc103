package extract

import (
	"strings"
	"unicode/utf8"

	"ddfeed/internal/document"

	"github.com/mitchellh/mapstructure"
)

// minNameLength is the shortest name (in runes) that is treated as a store.
const minNameLength = 3

// StoreRecord is one store entry harvested from a feed document.
type StoreRecord struct {
	Name         string   `json:"name"`
	Subtitle     string   `json:"subtitle,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	DeliveryFee  any      `json:"delivery_fee,omitempty"`
	DeliveryTime any      `json:"delivery_time,omitempty"`
	ExternalId   string   `json:"store_id,omitempty"`
	Uri          string   `json:"uri,omitempty"`
	SourceLabel  string   `json:"source"`
	Path         string   `json:"path"`
}

// Key is the identity used for deduplication.
func (r StoreRecord) Key() string {
	return strings.ToLower(r.Name)
}

type customData struct {
	Rating       *float64 `mapstructure:"rating"`
	DeliveryFee  any      `mapstructure:"delivery_fee"`
	DeliveryTime any      `mapstructure:"delivery_time"`
}

// ExtractRecords visits every mapping of doc and assembles a StoreRecord out
// of whatever `text`, `custom` and `events.click.data` sub-mappings it has.
// Only candidates with a name of at least 3 characters are kept, and of
// those only the first occurrence of every case-insensitive name.
func ExtractRecords(doc document.Node, sourceLabel string) []StoreRecord {
	records := []StoreRecord{}
	seen := map[string]bool{}

	document.Walk(doc, document.VisitorFuncs{
		Mapping: func(path document.Path, m *document.Mapping) error {
			record, ok := candidate(m)
			if !ok {
				return nil
			}
			key := record.Key()
			if seen[key] {
				return nil
			}
			seen[key] = true

			record.SourceLabel = sourceLabel
			record.Path = path.String()
			records = append(records, record)
			return nil
		},
	})

	return records
}

func candidate(m *document.Mapping) (StoreRecord, bool) {
	var record StoreRecord

	if text, ok := m.Mapping("text"); ok {
		name, _ := text.String("title")
		subtitle, _ := text.String("subtitle")
		record.Name = strings.TrimSpace(name)
		record.Subtitle = strings.TrimSpace(subtitle)
	}
	if record.Name == "" || utf8.RuneCountInString(record.Name) < minNameLength {
		return StoreRecord{}, false
	}

	if custom, ok := m.Mapping("custom"); ok {
		decoded := decodeCustom(custom)
		record.Rating = decoded.Rating
		record.DeliveryFee = decoded.DeliveryFee
		record.DeliveryTime = decoded.DeliveryTime
	}

	if data, ok := m.LookupMapping("events", "click", "data"); ok {
		if storeId, ok := data.Get("store_id"); ok {
			record.ExternalId, _ = document.Scalar(storeId)
		}
		if uri, ok := data.Get("uri"); ok {
			record.Uri, _ = document.Scalar(uri)
		}
	}

	return record, true
}

// decodeCustom is lenient: a rating that cannot be read as a number is left
// out while the other fields are still kept.
func decodeCustom(custom *document.Mapping) customData {
	var out customData
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out
	}
	err = decoder.Decode(custom.Interface())
	if err != nil {
		out.Rating = nil
	}
	return out
}
