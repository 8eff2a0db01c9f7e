package inference

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// LabelEncoder maps category labels to the integer codes used at training time.
// Classes are kept sorted, so a label's code is its index.
type LabelEncoder struct {
	classes []string
}

type labelEncoderFile struct {
	Classes []string `json:"classes"`
}

// NewLabelEncoder builds an encoder over the distinct, sorted classes.
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("label encoder has no classes")
	}
	sorted := append([]string(nil), classes...)
	sort.Strings(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, fmt.Errorf("label encoder has duplicate class %q", sorted[i])
		}
	}
	return &LabelEncoder{classes: sorted}, nil
}

// LoadLabelEncoder reads an encoder from a JSON file of the form {"classes": [...]}.
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label encoder %s: %w", path, err)
	}
	enc, err := ParseLabelEncoder(raw)
	if err != nil {
		return nil, fmt.Errorf("label encoder %s: %w", path, err)
	}
	return enc, nil
}

// ParseLabelEncoder decodes {"classes": [...]}.
func ParseLabelEncoder(raw []byte) (*LabelEncoder, error) {
	var f labelEncoderFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode label encoder: %w", err)
	}
	return NewLabelEncoder(f.Classes)
}

// Transform returns the code for label, or an error if the encoder was not fitted on it.
func (e *LabelEncoder) Transform(label string) (int, error) {
	i := sort.SearchStrings(e.classes, label)
	if i < len(e.classes) && e.classes[i] == label {
		return i, nil
	}
	return 0, fmt.Errorf("label %q was not seen during fitting", label)
}

// Classes returns a copy of the fitted classes.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}
