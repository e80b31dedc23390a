package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/haptix/internal/validator"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned when the input has no content.
var ErrEmptyDocument = errors.New("empty graph document")

// Parser converts raw YAML or JSON bytes into a GraphDefinition.
// JSON is accepted because it is a subset of YAML.
type Parser struct {
	validator *validator.Validator
}

// NewParser creates a new parser instance.
func NewParser() (*Parser, error) {
	v, err := validator.New()
	if err != nil {
		return nil, err
	}
	return &Parser{validator: v}, nil
}

// Parse decodes data, checks it against the graph schema and maps it onto
// a GraphDefinition. Schema failures are *domain.GraphValidationError.
func (p *Parser) Parse(data []byte) (domain.GraphDefinition, error) {
	var def domain.GraphDefinition

	raw, err := decodeDocument(data)
	if err != nil {
		return def, err
	}
	if err := p.validator.ValidateDocument(raw); err != nil {
		return def, err
	}
	if err := Decode(raw, &def); err != nil {
		return def, fmt.Errorf("%w: %v", domain.ErrInvalidGraph, err)
	}
	return def, nil
}

// ParseGraph parses data and builds the executable graph.
func (p *Parser) ParseGraph(data []byte, opts ...domain.BuildOption) (*domain.Graph, error) {
	def, err := p.Parse(data)
	if err != nil {
		return nil, err
	}
	return domain.BuildGraph(def, opts...)
}

// Decode maps a generic document (as produced by YAML or JSON decoders)
// onto out, using the json field names.
func Decode(raw any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func decodeDocument(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}
	var raw any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("decode graph document: %w", err)
	}
	return raw, nil
}
