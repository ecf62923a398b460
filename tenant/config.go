package tenant

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/shiftdb/core"
)

// DbMode selects the ConnectionModeStrategy a DatabaseContext wraps its
// pool in.
type DbMode int

const (
	ModeStandard DbMode = iota
	ModeKeepAlive
	ModeSingleWriter
	ModeSingleConnection
)

var dbModeNames = map[string]DbMode{
	"Standard":         ModeStandard,
	"KeepAlive":        ModeKeepAlive,
	"SingleWriter":     ModeSingleWriter,
	"SingleConnection": ModeSingleConnection,
}

// UnmarshalYAML accepts the mode's name ("Standard", "KeepAlive", ...)
// so configuration files read naturally.
func (m *DbMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	mode, ok := dbModeNames[s]
	if !ok {
		return core.NewInvalidConfigurationError("DbMode", fmt.Sprintf("unrecognised mode %q", s))
	}
	*m = mode
	return nil
}

// ReadWriteMode selects whether a DatabaseContext accepts write
// operations.
type ReadWriteMode int

const (
	ReadWrite ReadWriteMode = iota
	ReadOnly
)

var readWriteModeNames = map[string]ReadWriteMode{
	"ReadWrite": ReadWrite,
	"ReadOnly":  ReadOnly,
}

// UnmarshalYAML accepts "ReadWrite"/"ReadOnly".
func (m *ReadWriteMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	mode, ok := readWriteModeNames[s]
	if !ok {
		return core.NewInvalidConfigurationError("ReadWriteMode", fmt.Sprintf("unrecognised mode %q", s))
	}
	*m = mode
	return nil
}

// DatabaseContextConfiguration is the on-disk shape of one
// DatabaseContext, per spec.md §6's configuration surface.
type DatabaseContextConfiguration struct {
	ConnectionString string        `yaml:"connectionString"`
	ProviderName     string        `yaml:"providerName"`
	DbMode           DbMode        `yaml:"dbMode"`
	ReadWriteMode    ReadWriteMode `yaml:"readWriteMode"`
}

// TenantConfiguration names one DatabaseContextConfiguration under a
// tenant key. LoadConfigurations decodes a list of these; the core
// itself owns no persisted state, so the caller is responsible for
// sourcing the YAML document this parses.
type TenantConfiguration struct {
	Name                         string                       `yaml:"name"`
	DatabaseContextConfiguration DatabaseContextConfiguration `yaml:"databaseContext"`
}

// configFile is the root document shape: a list of named tenants.
type configFile struct {
	Tenants []TenantConfiguration `yaml:"tenants"`
}

// LoadConfigurations decodes a YAML document of tenant configurations
// from r. It performs no I/O of its own beyond reading r, so callers
// supply the file, embedded asset, or network stream.
func LoadConfigurations(r io.Reader) ([]TenantConfiguration, error) {
	var cf configFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return nil, core.NewInvalidConfigurationError("tenant configuration", err.Error())
	}
	seen := make(map[string]bool, len(cf.Tenants))
	for _, t := range cf.Tenants {
		if t.Name == "" {
			return nil, core.NewInvalidConfigurationError("tenant configuration", "a tenant name is required")
		}
		if seen[t.Name] {
			return nil, core.NewInvalidConfigurationError("tenant configuration", fmt.Sprintf("duplicate tenant name %q", t.Name))
		}
		seen[t.Name] = true
		if t.DatabaseContextConfiguration.ConnectionString == "" {
			return nil, core.NewInvalidConfigurationError(t.Name, "a connection string is required")
		}
	}
	return cf.Tenants, nil
}
