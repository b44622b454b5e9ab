package config

import (
	"gopkg.in/yaml.v3"

	"github.com/lanikai/framecast/internal/quality"
)

// qualityValue lets a quality.Level be set from YAML ("HD", "low", 3, ...).
type qualityValue quality.Level

func (q *qualityValue) UnmarshalYAML(node *yaml.Node) error {
	level, err := quality.Parse(node.Value)
	if err != nil {
		return err
	}
	*q = qualityValue(level)
	return nil
}

func (c *Client) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Address *string       `yaml:"address"`
		Quality *qualityValue `yaml:"quality"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Address != nil {
		c.Address = *raw.Address
	}
	if raw.Quality != nil {
		c.Quality = quality.Level(*raw.Quality)
	}
	return nil
}
