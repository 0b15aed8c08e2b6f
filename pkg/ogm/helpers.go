package ogm

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/conduit-lang/neogm/internal/ogm/mapping"
	"github.com/conduit-lang/neogm/internal/ogm/relationships"
)

// Lazy returns the lazy relationship handle stored in field, or nil when the
// field is absent or was fetched eagerly
func Lazy(e *mapping.Entity, field string) *relationships.Handle {
	if e == nil {
		return nil
	}
	v, ok := e.Get(field)
	if !ok {
		return nil
	}
	h, _ := v.(*relationships.Handle)
	return h
}

// DecodeAll copies entities into a slice of Go values, e.g. *[]Movie
func DecodeAll(entities []*mapping.Entity, out any) error {
	maps := make([]map[string]any, len(entities))
	for i, e := range entities {
		maps[i] = e.Map()
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "ogm",
		Result:  out,
		Squash:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(maps); err != nil {
		return fmt.Errorf("failed to decode entities: %w", err)
	}
	return nil
}
