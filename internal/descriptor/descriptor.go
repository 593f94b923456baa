// Package descriptor loads the static JSON manifest that defines the job's
// command-line schema and resolves it into validated run parameters.
//
// The manifest (descriptor.json) is the single source of truth for parameter
// names, types and defaults: the flag set handed to the CLI is generated from
// it, so the binary and the manifest published to the platform cannot drift
// apart.
package descriptor

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

//go:embed descriptor.json
var manifestJSON []byte

// Input describes one parameter in the manifest.
//
// Types follow the platform's descriptor conventions:
//   - "String": free-form text
//   - "Number": integer or decimal value
//   - "Boolean": true/false
//   - "Domain": identifier of a single platform resource
//   - "ListDomain": comma-separated identifiers of platform resources
type Input struct {
	ID          string      `json:"id"`
	ValueKey    string      `json:"value-key"`
	Flag        string      `json:"command-line-flag"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        string      `json:"type"`
	Optional    bool        `json:"optional"`
	Default     interface{} `json:"default-value,omitempty"`
	SetByServer bool        `json:"set-by-server,omitempty"`
}

// Manifest is the parsed descriptor.json.
type Manifest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	SchemaVersion string  `json:"schema-version"`
	CommandLine   string  `json:"command-line"`
	Inputs        []Input `json:"inputs"`
}

// Load parses the embedded manifest.
func Load() (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(manifestJSON, &m); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	if len(m.Inputs) == 0 {
		return nil, fmt.Errorf("descriptor declares no inputs")
	}
	return &m, nil
}

// FlagSet builds a pflag set from the manifest inputs. Flag names are the
// input ids; defaults come from the manifest's default-value fields.
func (m *Manifest) FlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(m.Name, pflag.ContinueOnError)
	for _, in := range m.Inputs {
		switch in.Type {
		case "Number":
			fs.Float64(in.ID, toFloat(in.Default), in.Description)
		case "Boolean":
			def, _ := in.Default.(bool)
			fs.Bool(in.ID, def, in.Description)
		default: // String, Domain, ListDomain
			fs.String(in.ID, toString(in.Default), in.Description)
		}
	}
	return fs
}

// Params holds the resolved, validated job parameters.
type Params struct {
	Host       string `validate:"required,url"`
	PublicKey  string `validate:"required"`
	PrivateKey string `validate:"required"`

	ProjectID  int64 `validate:"required,gt=0"`
	SoftwareID int64 `validate:"omitempty,gt=0"`
	JobID      int64 `validate:"omitempty,gt=0"`

	// ImageIDs is empty when the job should run on every image in the project.
	ImageIDs []int64
	TermID   int64 `validate:"required,gt=0"`

	MaxImageSize       int `validate:"gt=0"`
	ThresholdAllowance int
	KernelWidth        int `validate:"gt=0"`
	KernelHeight       int `validate:"gt=0"`
	ErodeIterations    int `validate:"gte=0"`
	DilateIterations   int `validate:"gte=0"`

	MinAreaPercent float64 `validate:"gte=0,lte=100"`

	DebugDir string
	LogLevel string
}

// Resolve parses argv against the manifest's flag set, layers environment
// variables over unset flags and returns validated parameters.
//
// Environment names are the upper-cased flag names (cytomine_host becomes
// CYTOMINE_HOST), matching how the platform injects credentials into job
// containers.
func (m *Manifest) Resolve(argv []string) (*Params, error) {
	fs := m.FlagSet()
	if err := fs.Parse(argv); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	kernelW, kernelH, err := ParseKernel(v.GetString("kernel_size"))
	if err != nil {
		return nil, err
	}

	var imageIDs []int64
	if raw := v.GetString("cytomine_id_images"); raw != "" {
		imageIDs, err = ParseDomainList(raw)
		if err != nil {
			return nil, err
		}
	}

	p := &Params{
		Host:               strings.TrimRight(v.GetString("cytomine_host"), "/"),
		PublicKey:          v.GetString("cytomine_public_key"),
		PrivateKey:         v.GetString("cytomine_private_key"),
		ProjectID:          v.GetInt64("cytomine_id_project"),
		SoftwareID:         v.GetInt64("cytomine_id_software"),
		JobID:              v.GetInt64("cytomine_id_job"),
		ImageIDs:           imageIDs,
		TermID:             v.GetInt64("cytomine_id_predicted_term"),
		MaxImageSize:       v.GetInt("max_image_size"),
		ThresholdAllowance: v.GetInt("threshold_allowance"),
		KernelWidth:        kernelW,
		KernelHeight:       kernelH,
		ErodeIterations:    v.GetInt("erode_iterations"),
		DilateIterations:   v.GetInt("dilate_iterations"),
		MinAreaPercent:     v.GetFloat64("min_area_percent"),
		DebugDir:           v.GetString("debug_dir"),
		LogLevel:           v.GetString("log_level"),
	}

	if err := validator.New().Struct(p); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	return p, nil
}

// ParseDomainList parses a comma-separated list of resource identifiers.
// Blank entries are skipped; anything non-numeric is an error.
func ParseDomainList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid identifier %q in list %q", part, raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseKernel parses a structuring-element size given as "W" or "W,H".
// A single value is repeated to a square.
func ParseKernel(raw string) (width, height int, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) > 2 {
		return 0, 0, fmt.Errorf("kernel size %q: want one or two values", raw)
	}
	dims := make([]int, 0, 2)
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, 0, fmt.Errorf("kernel size %q: %w", raw, err)
		}
		dims = append(dims, n)
	}
	if len(dims) == 1 {
		dims = append(dims, dims[0])
	}
	if dims[0] <= 0 || dims[1] <= 0 {
		return 0, 0, fmt.Errorf("kernel size %q: dimensions must be positive", raw)
	}
	return dims[0], dims[1], nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
