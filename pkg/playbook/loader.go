package playbook

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fabricward/fabricward/pkg/engine"
)

// Playbook is the parsed desired-state input of one run.
type Playbook struct {
	// Path is the file the playbook was read from, empty when parsed
	// from a reader.
	Path string

	// Docs are the raw config documents, one mapping per entry, in
	// playbook order, ready for schema validation.
	Docs []map[string]any
}

// Load reads and parses a playbook file.
func Load(path string) (*Playbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, engine.NewError(engine.FailPlaybookParse,
			fmt.Sprintf("open playbook %s", path), err)
	}
	defer f.Close()

	pb, err := Parse(f)
	if err != nil {
		return nil, err
	}
	pb.Path = path
	return pb, nil
}

// Parse decodes a playbook from a YAML stream. A document either carries
// a top-level config list or is itself one config mapping; documents of
// a multi-document stream concatenate in order.
func Parse(r io.Reader) (*Playbook, error) {
	dec := yaml.NewDecoder(r)
	pb := &Playbook{}

	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, engine.NewError(engine.FailPlaybookParse, "invalid playbook YAML", err)
		}
		if doc == nil {
			continue
		}

		raw, ok := doc["config"]
		if !ok {
			pb.Docs = append(pb.Docs, doc)
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, engine.Errorf(engine.FailPlaybookParse,
				"config must be a list of mappings, got %T", raw)
		}
		for i, elem := range list {
			m, ok := elem.(map[string]any)
			if !ok {
				return nil, engine.Errorf(engine.FailPlaybookParse,
					"config[%d] must be a mapping, got %T", i, elem)
			}
			pb.Docs = append(pb.Docs, m)
		}
	}

	if len(pb.Docs) == 0 {
		return nil, engine.Errorf(engine.FailPlaybookParse,
			"playbook contains no config documents")
	}
	return pb, nil
}
