package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelFile is the on-disk form of a fitted vectorizer and linear model.
// It is YAML; JSON exports load as well since YAML is a superset.
type ModelFile struct {
	Name       string       `yaml:"name"`
	Vectorizer TFIDFParams  `yaml:"vectorizer"`
	Model      LinearParams `yaml:"model"`
}

// LoadModelFile reads a model file and builds the vectorizer and model.
func LoadModelFile(path string) (*TFIDF, *Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read model file: %w", err)
	}
	var mf ModelFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, nil, fmt.Errorf("parse model file: %w", err)
	}
	return mf.Build()
}

// Build validates the file contents and checks that the vectorizer output
// width matches the model input width.
func (mf *ModelFile) Build() (*TFIDF, *Linear, error) {
	vec, err := NewTFIDF(mf.Vectorizer)
	if err != nil {
		return nil, nil, err
	}
	model, err := NewLinear(mf.Model)
	if err != nil {
		return nil, nil, err
	}
	if vec.Features() != model.Width() {
		return nil, nil, fmt.Errorf("model file: vectorizer emits %d features, model expects %d",
			vec.Features(), model.Width())
	}
	return vec, model, nil
}
