package provision

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Recipe is the ordered list of provisioning steps applied to a host.
// Steps run strictly in order; the first failure stops the run.
type Recipe struct {
	// Name identifies the recipe in logs.
	Name string `yaml:"name"`
	// Steps are applied top to bottom.
	Steps []Step `yaml:"steps"`
}

// Step declares exactly one provisioning action. Validate rejects entries
// with zero or multiple actions set.
type Step struct {
	// Name is the human-readable label logged for the step.
	Name string `yaml:"name"`

	Locale         *LocaleStep         `yaml:"locale,omitempty"`
	AptKey         *AptKeyStep         `yaml:"apt_key,omitempty"`
	AptRepository  *AptRepositoryStep  `yaml:"apt_repository,omitempty"`
	AptUpdate      *AptUpdateStep      `yaml:"apt_update,omitempty"`
	Packages       *PackagesStep       `yaml:"packages,omitempty"`
	BuildDep       *BuildDepStep       `yaml:"build_dep,omitempty"`
	ServiceRestart *ServiceRestartStep `yaml:"service_restart,omitempty"`
	User           *UserStep           `yaml:"user,omitempty"`
	Sudoers        *SudoersStep        `yaml:"sudoers,omitempty"`
}

// LocaleStep generates a system locale.
type LocaleStep struct {
	// Locale in locale-gen form, e.g. "en_US.UTF-8".
	Locale string `yaml:"locale"`
}

// AptKeyStep downloads a repository signing key into a keyring file.
type AptKeyStep struct {
	// URL of the armored key.
	URL string `yaml:"url"`
	// Keyring is the destination path, e.g. /etc/apt/keyrings/pgdg.asc.
	Keyring string `yaml:"keyring"`
}

// AptRepositoryStep registers a package repository source entry.
type AptRepositoryStep struct {
	// Entry is the full sources.list line, including any signed-by option.
	Entry string `yaml:"entry"`
	// File is the destination under /etc/apt/sources.list.d.
	File string `yaml:"file"`
}

// AptUpdateStep refreshes the package index.
type AptUpdateStep struct{}

// PackagesStep installs packages from the configured repositories.
type PackagesStep struct {
	Names []string `yaml:"names"`
}

// BuildDepStep installs the build-time dependencies of source packages,
// for software compiled inside isolated application environments.
type BuildDepStep struct {
	Packages []string `yaml:"packages"`
}

// ServiceRestartStep restarts a system service.
type ServiceRestartStep struct {
	Name string `yaml:"name"`
}

// UserStep ensures an account exists with the given supplementary groups.
type UserStep struct {
	Name   string   `yaml:"name"`
	Groups []string `yaml:"groups"`
	// Shell for the account; useradd's default when empty.
	Shell string `yaml:"shell,omitempty"`
}

// SudoersStep grants an account passwordless sudo via a drop-in file.
type SudoersStep struct {
	User string `yaml:"user"`
	// File is the drop-in path under /etc/sudoers.d.
	File string `yaml:"file"`
}

// Load reads and validates a recipe file.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks that every step declares exactly one complete action.
func (r *Recipe) Validate() error {
	if len(r.Steps) == 0 {
		return errors.New("recipe has no steps")
	}
	for i := range r.Steps {
		if err := r.Steps[i].validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, r.Steps[i].Name, err)
		}
	}
	return nil
}

// Describe returns a one-line description of the step's action, used for
// dry runs.
func (s *Step) Describe() string {
	switch {
	case s.Locale != nil:
		return "generate locale " + s.Locale.Locale
	case s.AptKey != nil:
		return "install apt signing key " + s.AptKey.Keyring
	case s.AptRepository != nil:
		return "register apt repository " + s.AptRepository.File
	case s.AptUpdate != nil:
		return "refresh package index"
	case s.Packages != nil:
		return "install packages: " + strings.Join(s.Packages.Names, " ")
	case s.BuildDep != nil:
		return "install build dependencies: " + strings.Join(s.BuildDep.Packages, " ")
	case s.ServiceRestart != nil:
		return "restart service " + s.ServiceRestart.Name
	case s.User != nil:
		return "ensure user " + s.User.Name
	case s.Sudoers != nil:
		return "install sudoers drop-in for " + s.Sudoers.User
	}
	return "no action"
}

func (s *Step) validate() error {
	set := 0
	if s.Locale != nil {
		set++
		if s.Locale.Locale == "" {
			return errors.New("locale requires a locale value")
		}
	}
	if s.AptKey != nil {
		set++
		if s.AptKey.URL == "" || s.AptKey.Keyring == "" {
			return errors.New("apt_key requires url and keyring")
		}
	}
	if s.AptRepository != nil {
		set++
		if s.AptRepository.Entry == "" || s.AptRepository.File == "" {
			return errors.New("apt_repository requires entry and file")
		}
	}
	if s.AptUpdate != nil {
		set++
	}
	if s.Packages != nil {
		set++
		if len(s.Packages.Names) == 0 {
			return errors.New("packages requires at least one name")
		}
	}
	if s.BuildDep != nil {
		set++
		if len(s.BuildDep.Packages) == 0 {
			return errors.New("build_dep requires at least one package")
		}
	}
	if s.ServiceRestart != nil {
		set++
		if s.ServiceRestart.Name == "" {
			return errors.New("service_restart requires a name")
		}
	}
	if s.User != nil {
		set++
		if s.User.Name == "" {
			return errors.New("user requires a name")
		}
	}
	if s.Sudoers != nil {
		set++
		if s.Sudoers.User == "" || s.Sudoers.File == "" {
			return errors.New("sudoers requires user and file")
		}
	}

	switch set {
	case 0:
		return errors.New("no action set")
	case 1:
		return nil
	default:
		return errors.New("more than one action set")
	}
}
