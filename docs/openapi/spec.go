// Package openapi embeds the OpenAPI description of the tracker HTTP API.
package openapi

import (
	_ "embed"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// TrackerSpec contains the OpenAPI document served at /api/v1/openapi.yaml.
//
//go:embed schmerzverlauf.yaml
var TrackerSpec []byte

// Spec returns a copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), TrackerSpec...)
}

type document struct {
	Info struct {
		Version string `yaml:"version"`
	} `yaml:"info"`
	Paths map[string]map[string]yaml.Node `yaml:"paths"`
}

var (
	docOnce sync.Once
	doc     document
	docErr  error
)

func parsed() (document, error) {
	docOnce.Do(func() {
		docErr = yaml.Unmarshal(TrackerSpec, &doc)
	})
	return doc, docErr
}

// Version returns info.version of the embedded document.
func Version() (string, error) {
	d, err := parsed()
	return d.Info.Version, err
}

// Operation is one documented method and path.
type Operation struct {
	Method string
	Path   string
}

// Operations lists the documented operations ordered by path, then method.
func Operations() ([]Operation, error) {
	d, err := parsed()
	if err != nil {
		return nil, err
	}
	var ops []Operation
	for path, methods := range d.Paths {
		for method := range methods {
			ops = append(ops, Operation{Method: method, Path: path})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	return ops, nil
}
