package talisman

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gofrs/uuid/v5"
	"gopkg.in/yaml.v3"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Talismans []catalogEntry `yaml:"talismans"`
}

type catalogEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	IconURL     string `yaml:"icon_url"`
	Condition   string `yaml:"condition"`
}

// LoadCatalog decodes a YAML catalog. Unknown fields and malformed ids are rejected.
func LoadCatalog(r io.Reader) ([]model.Talisman, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode catalog: %v", errs.ErrInvalidConfiguration, err)
	}
	out := make([]model.Talisman, 0, len(f.Talismans))
	for i, e := range f.Talismans {
		id, err := uuid.FromString(e.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: talisman[%d] bad id %q", errs.ErrInvalidConfiguration, i, e.ID)
		}
		out = append(out, model.Talisman{
			ID:          id,
			Name:        e.Name,
			Description: e.Description,
			IconURL:     e.IconURL,
			Condition:   e.Condition,
		})
	}
	return out, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() ([]model.Talisman, error) {
	return LoadCatalog(bytes.NewReader(defaultCatalog))
}

// LoadEngine builds an engine from path, or from the embedded catalog when path is empty.
func LoadEngine(path string) (*Engine, error) {
	var (
		cat []model.Talisman
		err error
	)
	if path == "" {
		cat, err = DefaultCatalog()
	} else {
		var f *os.File
		if f, err = os.Open(path); err != nil {
			return nil, err
		}
		defer f.Close()
		cat, err = LoadCatalog(f)
	}
	if err != nil {
		return nil, err
	}
	return NewEngine(cat)
}
