package source

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

func ParseTOML(data []byte) (*Catalog, error) {
	cat := &Catalog{}
	md, err := toml.Decode(string(data), cat)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown catalog keys: %s", strings.Join(keys, ", "))
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}
