package main

import (
	"fmt"
	"log"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/perdasilva/depres/pkg/universe/source"
	"github.com/perdasilva/depres/pkg/version"
)

// Splits catalogs into one normalised YAML catalog per package: releases
// sorted newest first, dependency strings collapsed onto one line.
//
//	go run ./hack/catalog_exporter <catalog...>
func main() {
	const outputDir = "packages"

	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <catalog...>", os.Args[0])
	}

	_ = os.RemoveAll(outputDir)
	_ = os.Mkdir(outputDir, 0774)

	for _, catalogPath := range os.Args[1:] {
		cat, err := source.LoadFile(catalogPath)
		if err != nil {
			log.Fatalf("error loading catalog (%s): %s", catalogPath, err)
		}
		for _, pkg := range leanCatalog(cat).Packages {
			log.Printf("exporting package %s", pkg.Name)
			single := &source.Catalog{
				SchemaVersion: cat.SchemaVersion,
				Grammar:       cat.Grammar,
				Packages:      []source.Package{pkg},
			}
			out, err := source.MarshalYAML(single)
			if err != nil {
				log.Fatalf("failed to export package (%s): %s", pkg.Name, err)
			}

			file := path.Join(outputDir, fmt.Sprintf("%s.yaml", strings.ReplaceAll(pkg.Name, "/", "_")))
			if err := os.WriteFile(file, out, 0664); err != nil {
				log.Fatalf("failed to write exported package (%s): %s", pkg.Name, err)
			}
		}
	}
}

func leanCatalog(cat *source.Catalog) *source.Catalog {
	for i := range cat.Packages {
		versions := cat.Packages[i].Versions
		for j := range versions {
			versions[j].Depend = strings.Join(strings.Fields(versions[j].Depend), " ")
			if versions[j].Slot == "" {
				versions[j].Slot = "0"
			}
		}
		sort.SliceStable(versions, func(a, b int) bool {
			return version.MustParse(versions[b].Version).Less(version.MustParse(versions[a].Version))
		})
	}
	return cat
}
