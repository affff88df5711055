package runner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"

	"github.com/entrhq/bddrun/pkg/scenario"
)

// FeatureExt is the extension of Gherkin files.
const FeatureExt = ".feature"

// Feature is a parsed feature file.
type Feature struct {
	Name      string
	Path      string
	Scenarios []scenario.Info
}

// Discover expands paths into a sorted, de-duplicated list of feature
// files. Directories are walked recursively.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), FeatureExt) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// LoadFeature parses a feature file and compiles its scenarios. Outlines
// expand to one scenario per example row; each carries every example table
// of its outline.
func LoadFeature(path string) (*Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	newID := (&messages.Incrementing{}).NewId
	doc, err := gherkin.ParseGherkinDocument(f, newID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	feature := &Feature{Path: path}
	if doc.Feature == nil {
		return feature, nil
	}
	feature.Name = doc.Feature.Name

	templates := indexScenarios(doc.Feature)

	for _, pickle := range gherkin.Pickles(*doc, path, newID) {
		info := scenario.Info{
			Name:        pickle.Name,
			FeatureName: feature.Name,
			FeaturePath: path,
		}

		if len(pickle.AstNodeIds) > 0 {
			if tmpl, ok := templates[pickle.AstNodeIds[0]]; ok {
				info.Name = tmpl.Name
				info.Examples = exampleTables(tmpl)
			}
		}

		for _, step := range pickle.Steps {
			info.Steps = append(info.Steps, step.Text)
		}
		for _, tag := range pickle.Tags {
			info.Tags = append(info.Tags, tag.Name)
		}

		feature.Scenarios = append(feature.Scenarios, info)
	}

	return feature, nil
}

func indexScenarios(feature *messages.Feature) map[string]*messages.Scenario {
	index := make(map[string]*messages.Scenario)
	for _, child := range feature.Children {
		if child.Scenario != nil {
			index[child.Scenario.Id] = child.Scenario
		}
		if child.Rule != nil {
			for _, rc := range child.Rule.Children {
				if rc.Scenario != nil {
					index[rc.Scenario.Id] = rc.Scenario
				}
			}
		}
	}
	return index
}

func exampleTables(s *messages.Scenario) []scenario.ExampleTable {
	var tables []scenario.ExampleTable
	for _, ex := range s.Examples {
		table := scenario.ExampleTable{Name: ex.Name}
		for _, row := range ex.TableBody {
			values := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				values = append(values, cell.Value)
			}
			table.Rows = append(table.Rows, values)
		}
		tables = append(tables, table)
	}
	return tables
}
