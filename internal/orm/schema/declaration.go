package schema

// ModelDeclaration is what the field-declaration layer supplies per model
type ModelDeclaration struct {
	// Key identifies the model in the registry and the metadata cache
	Key string `yaml:"key"`
	// Name is the display name of the model, e.g. "User"
	Name string `yaml:"name"`
	// Collection overrides the derived collection name
	Collection string `yaml:"collection"`

	Fields []FieldDeclaration `yaml:"fields"`

	// Ignore lists fields that are validated but never persisted
	Ignore []string `yaml:"ignore"`

	DisableCreate bool `yaml:"disable_create"`
	DisableUpdate bool `yaml:"disable_update"`
	DisableDelete bool `yaml:"disable_delete"`
}

// FieldDeclaration holds the static metadata of one field
type FieldDeclaration struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"`
	Label       string      `yaml:"label"`
	Default     interface{} `yaml:"default"`
	Placeholder string      `yaml:"placeholder"`
	Hint        string      `yaml:"hint"`

	Required  bool     `yaml:"required"`
	Unique    bool     `yaml:"unique"`
	ReadOnly  bool     `yaml:"readonly"`
	Disabled  bool     `yaml:"disabled"`
	Hidden    bool     `yaml:"hidden"`
	MinLength int      `yaml:"minlength"`
	MaxLength int      `yaml:"maxlength"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	Regex     string   `yaml:"regex"`
	RegexMsg  string   `yaml:"regex_err_msg"`

	Options     []Option    `yaml:"options"`
	SlugSources []string    `yaml:"slug_sources"`
	TargetDir   string      `yaml:"target_dir"`
	Thumbnails  []Thumbnail `yaml:"thumbnails"`
	Quality     bool        `yaml:"is_quality"`
}
