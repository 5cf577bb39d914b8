package nbgallery

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/alnah/go-nbgallery/internal/fileutil"
)

//go:embed index.schema.json
var indexSchemaSource []byte

const indexSchemaURL = "https://github.com/alnah/go-nbgallery/index.schema.json"

var compiledIndexSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(indexSchemaURL, bytes.NewReader(indexSchemaSource)); err != nil {
		return nil, err
	}
	return compiler.Compile(indexSchemaURL)
})

// IndexPath returns where a build under outputDir keeps its index.
func IndexPath(outputDir string) string {
	return filepath.Join(outputDir, NotebooksDir, IndexFile)
}

// SaveIndex writes index as indented JSON, replacing path atomically.
// Nil tag lists are written as empty arrays.
func SaveIndex(path string, index CollectionIndex) error {
	out := make(CollectionIndex, len(index))
	copy(out, index)
	for i := range out {
		if out[i].Tags == nil {
			out[i].Tags = []string{}
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// LoadIndex reads an index written by SaveIndex. The document is checked
// against the index schema before decoding; a mismatch wraps ErrInvalidIndex.
func LoadIndex(path string) (CollectionIndex, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- index path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return DecodeIndex(data)
}

// DecodeIndex validates and decodes index JSON.
func DecodeIndex(data []byte) (CollectionIndex, error) {
	schema, err := compiledIndexSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling index schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidIndex, describeSchemaError(err))
	}

	var index CollectionIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
	}
	return index, nil
}

// describeSchemaError flattens the leaf causes of a validation error.
func describeSchemaError(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}

	var parts []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			loc := node.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			parts = append(parts, loc+": "+node.Message)
			return
		}
		for _, c := range node.Causes {
			walk(c)
		}
	}
	walk(verr)
	return strings.Join(parts, "; ")
}
