package gridsearch

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pranayab18/Data-Extraction/internal/common"
)

// Mode selects how many requests are sent per document.
type Mode string

const (
	// ModeField sends one request per field.
	ModeField Mode = "field"
	// ModeConsolidated sends one request per document asking for every field as JSON.
	ModeConsolidated Mode = "consolidated"
)

// ConsolidatedField is the CSV field value used in consolidated mode.
const ConsolidatedField = "all_fields"

// Grid is the search space plus where the harness reads and writes.
type Grid struct {
	Models       []string  `yaml:"models"`
	Temperatures []float64 `yaml:"temperatures"`
	MaxTokens    []int     `yaml:"max_tokens"`
	TopPs        []float64 `yaml:"top_p"`
	Fields       []string  `yaml:"fields"`
	Mode         Mode      `yaml:"mode"`

	DocumentsDir string `yaml:"documents_dir"`
	OutputCSV    string `yaml:"output_csv"`
	ResultsDir   string `yaml:"results_dir"`
	MaxDocChars  int    `yaml:"max_doc_chars"`
}

// Params is one point of the grid.
type Params struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopP        float64 `json:"top_p"`
}

func DefaultGrid() Grid {
	return Grid{
		Models: []string{
			"google/gemini-1.5-flash",
			"openai/gpt-4o-mini",
			"anthropic/claude-3.5-sonnet",
		},
		Temperatures: []float64{0.0},
		MaxTokens:    []int{2000},
		TopPs:        []float64{1.0},
		Fields:       FieldNames(),
		Mode:         ModeField,
		DocumentsDir: "documents",
		OutputCSV:    "results/grid_results.csv",
		ResultsDir:   "results/model_outputs",
		MaxDocChars:  12000,
	}
}

// LoadGrid overlays the YAML file at path on DefaultGrid. An empty path
// returns the defaults.
func LoadGrid(path string) (Grid, error) {
	g := DefaultGrid()
	if path == "" {
		return g, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return g, common.NewAppError("GRID_NOT_FOUND", path, common.ErrNotFound)
		}
		return g, fmt.Errorf("read grid: %w", err)
	}
	if err := yaml.Unmarshal(b, &g); err != nil {
		return g, common.NewAppError("GRID_INVALID", "parse "+path, err)
	}
	return g, g.Validate()
}

func (g Grid) Validate() error {
	v := common.NewValidator()
	v.Field("models", g.Models, common.Required)
	v.Field("temperatures", g.Temperatures, common.Required)
	v.Field("max_tokens", g.MaxTokens, common.Required)
	v.Field("top_p", g.TopPs, common.Required)
	v.Field("mode", string(g.Mode), common.OneOf(string(ModeField), string(ModeConsolidated)))
	v.Field("output_csv", g.OutputCSV, common.Required)
	for _, t := range g.Temperatures {
		v.Field("temperatures", t, common.FloatRange(0, 2))
	}
	for _, n := range g.MaxTokens {
		v.Field("max_tokens", n, common.PositiveInt)
	}
	for _, p := range g.TopPs {
		v.Field("top_p", p, common.FloatRange(0, 1))
	}
	for _, f := range g.Fields {
		if _, ok := LookupField(f); !ok {
			v.Field("fields", f, common.OneOf(FieldNames()...))
		}
	}
	return v.Error()
}

// Combinations enumerates model × temperature × max_tokens × top_p with the
// model varying slowest.
func (g Grid) Combinations() []Params {
	out := make([]Params, 0, len(g.Models)*len(g.Temperatures)*len(g.MaxTokens)*len(g.TopPs))
	for _, m := range g.Models {
		for _, t := range g.Temperatures {
			for _, n := range g.MaxTokens {
				for _, p := range g.TopPs {
					out = append(out, Params{Model: m, Temperature: t, MaxTokens: n, TopP: p})
				}
			}
		}
	}
	return out
}

// RequestCount is the number of API calls Run will make for docs documents.
func (g Grid) RequestCount(docs int) int {
	per := 1
	if g.Mode != ModeConsolidated {
		per = len(g.Fields)
	}
	return docs * len(g.Combinations()) * per
}
