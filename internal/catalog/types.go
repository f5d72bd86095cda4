package catalog

import "fmt"

// ParamType is the closed set of parameter types a descriptor may declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	TypeDate    ParamType = "date"
	TypeFile    ParamType = "file"
)

// ParseParamType normalizes a type tag from catalog data. Unknown tags fall
// back to string so a sloppy catalog entry degrades instead of failing load.
func ParseParamType(s string) ParamType {
	switch ParamType(s) {
	case TypeString, TypeNumber, TypeBoolean, TypeArray, TypeObject, TypeDate:
		return ParamType(s)
	case "File", TypeFile:
		return TypeFile
	default:
		return TypeString
	}
}

// ParameterSpec declares one parameter of an API. Name is unique within its
// descriptor.
type ParameterSpec struct {
	Name        string    `yaml:"name"`
	Type        ParamType `yaml:"type"`
	Required    bool      `yaml:"required"`
	Integer     bool      `yaml:"integer,omitempty"` // number type must be a whole number
	Description string    `yaml:"description"`
}

// ReturnSpec describes the shape of an API's response. Structure maps field
// names to type tags and drives simulated result synthesis.
type ReturnSpec struct {
	Type        string            `yaml:"type"`
	Description string            `yaml:"description"`
	Structure   map[string]string `yaml:"structure,omitempty"`
}

// Dependency names an API (by path) that must execute before this one.
type Dependency struct {
	API    string `yaml:"api"`
	Reason string `yaml:"reason,omitempty"`
}

// Descriptor is one immutable catalog entry. Descriptors are owned by the
// Catalog and shared read-only across sessions.
type Descriptor struct {
	ID             string          `yaml:"-"`
	Path           string          `yaml:"path"`
	Method         string          `yaml:"method"`
	Description    string          `yaml:"description"`
	Category       string          `yaml:"category"`
	Parameters     []ParameterSpec `yaml:"parameters,omitempty"`
	Returns        ReturnSpec      `yaml:"returns,omitempty"`
	Dependencies   []Dependency    `yaml:"dependencies,omitempty"`
	IntentKeywords []string        `yaml:"intent_keywords,omitempty"`
}

// Summary is the short form of a descriptor used in prompts and the
// knowledge endpoint.
type Summary struct {
	ID          string `json:"id" yaml:"id"`
	Path        string `json:"path" yaml:"path"`
	Method      string `json:"method" yaml:"method"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
}

// Match is a descriptor ranked against a user intent. Higher Score means
// more relevant; only strictly positive scores are ever returned.
type Match struct {
	Descriptor *Descriptor
	Score      float64
	Reasoning  string
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s %s (%s)", d.Method, d.Path, d.ID)
}
