package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/okian/fairlens/internal/domain/model"
)

// dataset is the on-disk shape of a report request. YAML is read, so
// JSON files work too.
type dataset struct {
	RequestID   string      `yaml:"request_id"`
	Outcomes    []int       `yaml:"outcomes"`
	Protected   []int       `yaml:"protected"`
	Stratum     []yaml.Node `yaml:"stratum"`
	Individuals [][]float64 `yaml:"individuals"`
	Situation   *struct {
		T float64 `yaml:"t"`
		K int     `yaml:"k"`
	} `yaml:"situation"`
	Predicted []int       `yaml:"predicted"`
	Distances [][]float64 `yaml:"distances"`
}

func readDataset(path string) (model.ReportRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.ReportRequest{}, fmt.Errorf("read dataset: %w", err)
	}
	var ds dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return model.ReportRequest{}, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return ds.request()
}

func (ds *dataset) request() (model.ReportRequest, error) {
	req := model.ReportRequest{
		RequestID:   ds.RequestID,
		Outcomes:    ds.Outcomes,
		Protected:   ds.Protected,
		Individuals: ds.Individuals,
		Predicted:   ds.Predicted,
	}
	if ds.Situation != nil {
		req.Situation = &model.SituationSpec{Threshold: ds.Situation.T, K: ds.Situation.K}
	}

	if ds.Stratum != nil {
		req.Stratum = make([]string, len(ds.Stratum))
		for i := range ds.Stratum {
			label, err := stratumLabel(&ds.Stratum[i])
			if err != nil {
				return model.ReportRequest{}, fmt.Errorf("stratum[%d]: %w", i, err)
			}
			req.Stratum[i] = label
		}
	}

	if ds.Distances != nil {
		req.Distances = make([][2]float64, len(ds.Distances))
		for i, d := range ds.Distances {
			if len(d) != 2 {
				return model.ReportRequest{}, fmt.Errorf("distances[%d]: want 2 values, got %d", i, len(d))
			}
			req.Distances[i] = [2]float64{d[0], d[1]}
		}
	}
	return req, nil
}

// stratumLabel keys a scalar by its JSON text the way the HTTP API does:
// numbers keep their source spelling, so 1 and 1.0 are distinct strata, and
// strings are quoted, so "1" differs from 1.
func stratumLabel(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("must be a scalar")
	}
	switch n.ShortTag() {
	case "!!null":
		return "null", nil
	case "!!int", "!!float", "!!bool":
		return n.Value, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(n.Value); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
