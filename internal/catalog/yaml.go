package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is a catalog loaded once from a YAML file, used when no database
// is configured. Intent ids are assigned from file order, so "catalog
// order" means file order in this mode.
type File struct {
	intents   []fileIntent
	entities  []fileEntity
	responses []CandidateResponse
}

type fileSpec struct {
	Intents []struct {
		Name             string `yaml:"name"`
		Description      string `yaml:"description"`
		Active           *bool  `yaml:"active"`
		RequiredEntities []struct {
			Entity string `yaml:"entity"`
			Prompt string `yaml:"prompt"`
		} `yaml:"required_entities"`
	} `yaml:"intents"`
	Entities []struct {
		Name   string `yaml:"name"`
		Values []struct {
			Canonical string   `yaml:"canonical"`
			Synonyms  []string `yaml:"synonyms"`
		} `yaml:"values"`
	} `yaml:"entities"`
	Responses []struct {
		Intent    string            `yaml:"intent"`
		Language  string            `yaml:"language"`
		Text      string            `yaml:"text"`
		Condition map[string]string `yaml:"condition"`
	} `yaml:"responses"`
}

type fileIntent struct {
	Intent
	required []RequiredEntity
}

type fileEntity struct {
	name   string
	values []fileValue
}

type fileValue struct {
	canonical string
	synonyms  []string
}

// LoadFile reads and indexes a YAML catalog file.
func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var spec fileSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	f := &File{}
	for i, in := range spec.Intents {
		if strings.TrimSpace(in.Name) == "" {
			return nil, fmt.Errorf("catalog intent %d has no name", i+1)
		}
		active := in.Active == nil || *in.Active
		fi := fileIntent{Intent: Intent{
			ID:          int64(i + 1),
			Name:        in.Name,
			Description: in.Description,
			Active:      active,
		}}
		for _, re := range in.RequiredEntities {
			fi.required = append(fi.required, RequiredEntity{
				EntityName: re.Entity,
				Required:   true,
				Prompt:     re.Prompt,
			})
		}
		f.intents = append(f.intents, fi)
	}
	for _, e := range spec.Entities {
		fe := fileEntity{name: e.Name}
		for _, v := range e.Values {
			fe.values = append(fe.values, fileValue{canonical: v.Canonical, synonyms: v.Synonyms})
		}
		f.entities = append(f.entities, fe)
	}
	for i, r := range spec.Responses {
		id, ok := f.intentID(r.Intent)
		if !ok {
			return nil, fmt.Errorf("catalog response %d references unknown intent %q", i+1, r.Intent)
		}
		lang := r.Language
		if lang == "" {
			lang = "es"
		}
		f.responses = append(f.responses, CandidateResponse{
			ID:           int64(i + 1),
			IntentID:     id,
			Text:         r.Text,
			LanguageCode: lang,
			Condition:    r.Condition,
		})
	}
	return f, nil
}

func (f *File) intentID(name string) (int64, bool) {
	for _, in := range f.intents {
		if in.Name == name {
			return in.ID, true
		}
	}
	return 0, false
}

func (f *File) ValidateIntent(_ context.Context, name string) (ValidationResult, error) {
	for _, in := range f.intents {
		if in.Name == name && in.Active {
			return ValidationResult{Valid: true, IntentID: in.ID, IntentName: in.Name}, nil
		}
	}
	return ValidationResult{Valid: false, Message: "Intención no reconocida"}, nil
}

func (f *File) RequiredEntities(_ context.Context, intentID int64) ([]RequiredEntity, error) {
	for _, in := range f.intents {
		if in.ID == intentID {
			return append([]RequiredEntity(nil), in.required...), nil
		}
	}
	return nil, nil
}

func (f *File) Normalize(_ context.Context, value, entityName string) (string, error) {
	for _, e := range f.entities {
		if e.name != entityName {
			continue
		}
		for _, v := range e.values {
			if strings.EqualFold(v.canonical, value) {
				return v.canonical, nil
			}
			for _, syn := range v.synonyms {
				if strings.EqualFold(syn, value) {
					return v.canonical, nil
				}
			}
		}
	}
	return value, nil
}

func (f *File) FindResponses(_ context.Context, intentID int64, languageCode string) ([]CandidateResponse, error) {
	var out []CandidateResponse
	for _, r := range f.responses {
		if r.IntentID == intentID && r.LanguageCode == languageCode {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *File) IntentIDByName(_ context.Context, name string) (int64, bool, error) {
	for _, in := range f.intents {
		if in.Name == name && in.Active {
			return in.ID, true, nil
		}
	}
	return 0, false, nil
}
