package emu

import (
	"fmt"
	"os"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Seed is the declarative description of the initial emulator state. It can
// be built in code, decoded from an untyped map (DecodeSeed) or loaded from
// a YAML/JSON file (LoadSeedFile). Build feeds it through the normal store
// APIs, so anything expressible here is equally expressible with direct
// calls.
type Seed struct {
	Buckets     map[string]BucketSeed  `yaml:"buckets" mapstructure:"buckets"`
	Datasets    map[string]DatasetSeed `yaml:"datasets" mapstructure:"datasets"`
	Queries     map[string]QuerySeed   `yaml:"queries" mapstructure:"queries"`
	QueryErrors map[string]string      `yaml:"queryErrors" mapstructure:"queryErrors"`
	Secrets     map[string]SecretSeed  `yaml:"secrets" mapstructure:"secrets"`
}

// BucketSeed describes one bucket and its blobs.
type BucketSeed struct {
	Metadata map[string]string   `yaml:"metadata" mapstructure:"metadata"`
	Blobs    map[string]BlobSeed `yaml:"blobs" mapstructure:"blobs"`
}

// BlobSeed describes one blob. In seed data a blob may be given either as a
// bare string (the content) or as a mapping with content and metadata.
type BlobSeed struct {
	Content  string            `yaml:"content" mapstructure:"content"`
	Metadata map[string]string `yaml:"metadata" mapstructure:"metadata"`
}

// UnmarshalYAML accepts both the scalar and the mapping form of a blob.
func (b *BlobSeed) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&b.Content)
	}
	type plain BlobSeed
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*b = BlobSeed(p)
	return nil
}

// QuerySeed is the stub for one statement: either literal result rows or a
// designated error to raise when the results are consumed. In seed data a
// query may be given as a bare row sequence or as a mapping with an
// "error" (or "rows") key. A non-empty Error wins over Rows.
type QuerySeed struct {
	Rows  []map[string]any `yaml:"rows" mapstructure:"rows"`
	Error string           `yaml:"error" mapstructure:"error"`
}

// UnmarshalYAML accepts both the sequence and the mapping form of a query.
func (q *QuerySeed) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		return value.Decode(&q.Rows)
	}
	type plain QuerySeed
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*q = QuerySeed(p)
	return nil
}

// DatasetSeed describes one dataset and its tables.
type DatasetSeed struct {
	Tables map[string]TableSeed `yaml:"tables" mapstructure:"tables"`
}

// TableSeed describes one table: a schema and optional introspection rows.
type TableSeed struct {
	Schema []FieldSeed      `yaml:"schema" mapstructure:"schema"`
	Rows   []map[string]any `yaml:"rows" mapstructure:"rows"`
}

// FieldSeed is one schema column.
type FieldSeed struct {
	Name string `yaml:"name" mapstructure:"name"`
	Type string `yaml:"type" mapstructure:"type"`
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// SecretSeed describes one secret. Versions are keyed by their intended
// numeric id; ids are re-assigned sequentially in numeric order through the
// normal AddVersion API. DefaultPayload is used only when no versions are
// given.
type SecretSeed struct {
	Versions       map[string]SecretVersionSeed `yaml:"versions" mapstructure:"versions"`
	DefaultPayload string                       `yaml:"defaultPayload" mapstructure:"defaultPayload"`
}

// SecretVersionSeed is one seeded secret version.
type SecretVersionSeed struct {
	Payload string `yaml:"payload" mapstructure:"payload"`
}

// DecodeSeed converts an untyped nested map (for example one unmarshalled
// from JSON) into a Seed. Blob values given as bare strings are accepted.
func DecodeSeed(raw map[string]any) (Seed, error) {
	var seed Seed
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			blobSeedStringHook(),
			querySeedListHook(),
		),
		Result: &seed,
	})
	if err != nil {
		return Seed{}, fmt.Errorf("emu: building seed decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Seed{}, fmt.Errorf("emu: decoding seed: %w", err)
	}
	return seed, nil
}

// blobSeedStringHook lets a plain string decode into BlobSeed.Content.
func blobSeedStringHook() mapstructure.DecodeHookFuncType {
	blobType := reflect.TypeOf(BlobSeed{})
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to == blobType && from.Kind() == reflect.String {
			return BlobSeed{Content: data.(string)}, nil
		}
		return data, nil
	}
}

// querySeedListHook lets a bare row sequence decode into QuerySeed.Rows.
func querySeedListHook() mapstructure.DecodeHookFuncType {
	queryType := reflect.TypeOf(QuerySeed{})
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to == queryType && from.Kind() == reflect.Slice {
			return map[string]any{"rows": data}, nil
		}
		return data, nil
	}
}

// LoadSeedFile reads a seed from a YAML file. JSON works too, since YAML is
// a superset.
func LoadSeedFile(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("emu: reading seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("emu: parsing seed file %s: %w", path, err)
	}
	return seed, nil
}
