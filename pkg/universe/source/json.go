package source

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseJSON reads a catalog from JSON. Field names match the YAML form.
func ParseJSON(data []byte) (*Catalog, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New("catalog must be a JSON object")
	}

	cat := &Catalog{
		SchemaVersion: doc.Get("schemaVersion").String(),
		Grammar:       doc.Get("grammar").String(),
	}

	var err error
	doc.Get("packages").ForEach(func(_, pkgResult gjson.Result) bool {
		pkg := Package{
			Name:       pkgResult.Get("name").String(),
			Repository: pkgResult.Get("repository").String(),
		}
		pkgResult.Get("versions").ForEach(func(_, relResult gjson.Result) bool {
			version := relResult.Get("version")
			if version.Type != gjson.String {
				err = fmt.Errorf("package %s: version must be a string, got %s", pkg.Name, version.Raw)
				return false
			}
			rel := Release{
				Version: version.String(),
				Slot:    relResult.Get("slot").String(),
				Depend:  relResult.Get("depend").String(),
				Grammar: relResult.Get("grammar").String(),
			}
			relResult.Get("flags").ForEach(func(flag, enabled gjson.Result) bool {
				if rel.Flags == nil {
					rel.Flags = make(map[string]bool)
				}
				rel.Flags[flag.String()] = enabled.Bool()
				return true
			})
			pkg.Versions = append(pkg.Versions, rel)
			return true
		})
		cat.Packages = append(cat.Packages, pkg)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}
