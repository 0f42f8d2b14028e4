package passage

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/speedtype/internal/config"
)

// Defaults returns the starter passages written by WriteDefaults.
func Defaults() map[string]string {
	return map[string]string{
		"Easy":   "the cat sat on the mat and the dog ran to the park to play with a red ball in the sun",
		"Medium": "Typing quickly is a skill built by steady practice. Keep your eyes on the text, let your fingers rest on the home row, and aim for accuracy before speed.",
		"Hard":   "Quartz jugs, vexing fjords & bright zephyrs: 42 quick boxers (weighing 87.5kg each) jumped over 13 lazy dwarves; \"Why?\" asked Jo - nobody knew!",
	}
}

// WriteDefaults writes the starter passages to path. An existing file is left
// untouched unless force is set.
func WriteDefaults(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("passage file already exists: %s (use --force to overwrite)", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat passage file: %w", err)
		}
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(Defaults())
	} else {
		data, err = json.MarshalIndent(Defaults(), "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode passages: %w", err)
	}

	if err := config.WriteAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write passages: %w", err)
	}
	return nil
}
