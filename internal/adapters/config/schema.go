package config

// Stalefile represents the structure of the stale.yaml configuration file.
type Stalefile struct {
	Root       string        `yaml:"root"`
	Workers    int           `yaml:"workers"`
	Syntax     string        `yaml:"syntax"`
	Extensions []string      `yaml:"extensions"`
	LoadPaths  []string      `yaml:"load_paths"`
	Cache      string        `yaml:"cache"`
	Targets    []TargetDTO   `yaml:"targets"`
	Locations  []LocationDTO `yaml:"locations"`
}

// TargetDTO represents a single template/output pair in the configuration.
type TargetDTO struct {
	Template string `yaml:"template"`
	Output   string `yaml:"output"`
}

// LocationDTO represents a directory of templates compiled into a directory of outputs.
type LocationDTO struct {
	Source string `yaml:"source"`
	Output string `yaml:"output"`
}
