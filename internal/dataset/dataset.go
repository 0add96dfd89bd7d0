package dataset

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const tablePrefix = "unichain_sepolia_"

type Descriptor struct {
	Name      string
	Title     string
	SQL       string
	TableName string
}

var catalog = []struct {
	name  string
	title string
}{
	{name: "general_metrics", title: "General Metrics"},
	{name: "new_and_returning_eoas", title: "New and Returning EOAs"},
	{name: "new_and_returning_deployers", title: "New and Returning Deployers"},
	{name: "gas_metrics", title: "Gas Metrics"},
	{name: "gas_guzzlers", title: "Gas Guzzlers"},
	{name: "gas_spenders", title: "Gas Spenders"},
}

// All returns the published datasets in publishing order.
func All() ([]Descriptor, error) {
	return load(embeddedFS)
}

func load(fsys fs.FS) ([]Descriptor, error) {
	descriptors := make([]Descriptor, 0, len(catalog))
	for _, item := range catalog {
		raw, err := fs.ReadFile(fsys, path.Join("sql", item.name+".sql"))
		if err != nil {
			return nil, fmt.Errorf("read sql for dataset %q: %w", item.name, err)
		}
		sqlText := strings.TrimSpace(string(raw))
		if sqlText == "" {
			return nil, fmt.Errorf("sql for dataset %q is empty", item.name)
		}
		descriptors = append(descriptors, Descriptor{
			Name:      item.name,
			Title:     item.title,
			SQL:       sqlText,
			TableName: tablePrefix + item.name,
		})
	}
	return descriptors, nil
}

// Select keeps the descriptors named in names, preserving the order of all.
// An empty names list selects everything.
func Select(all []Descriptor, names []string) ([]Descriptor, error) {
	if len(names) == 0 {
		return append([]Descriptor(nil), all...), nil
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := Find(all, name); !ok {
			return nil, fmt.Errorf("unknown dataset %q", name)
		}
		wanted[name] = true
	}
	selected := make([]Descriptor, 0, len(wanted))
	for _, descriptor := range all {
		if wanted[descriptor.Name] {
			selected = append(selected, descriptor)
		}
	}
	return selected, nil
}

func Find(all []Descriptor, name string) (Descriptor, bool) {
	for _, descriptor := range all {
		if descriptor.Name == name {
			return descriptor, true
		}
	}
	return Descriptor{}, false
}
