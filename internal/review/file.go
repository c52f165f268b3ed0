package review

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SaveFile writes a session to a YAML file the reviewer can edit by hand
// before committing.
func SaveFile(path string, s Session) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "review: marshal session")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "review: write %s", path)
	}
	return nil
}

// LoadFile reads a session back from a YAML file.
func LoadFile(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, eris.Wrapf(err, "review: read %s", path)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Session{}, eris.Wrapf(err, "review: parse %s", path)
	}
	return s, nil
}
