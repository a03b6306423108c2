package source

import (
	"gopkg.in/yaml.v2"
)

func ParseYAML(data []byte) (*Catalog, error) {
	cat := &Catalog{}
	if err := yaml.UnmarshalStrict(data, cat); err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func MarshalYAML(cat *Catalog) ([]byte, error) {
	return yaml.Marshal(cat)
}
