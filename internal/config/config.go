// Package config loads and saves the lumatrix YAML configuration.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Device struct {
	Name    string `yaml:"name"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Quirk80 bool   `yaml:"quirk_80"` // firmware wants transaction id 0x80
}

type Preview struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"` // e.g. :8080
}

type Strip struct {
	Enabled  bool    `yaml:"enabled"`
	Dev      string  `yaml:"dev"`       // SPI port name, empty = first available
	WhiteCap float64 `yaml:"white_cap"` // 0..1, 0 = no cap
}

type Renderer struct {
	Kind       string  `yaml:"kind"`
	FPS        float64 `yaml:"fps,omitempty"`
	Opacity    float64 `yaml:"opacity,omitempty"`
	Blend      string  `yaml:"blend,omitempty"`
	Background string  `yaml:"background,omitempty"` // #RRGGBB or #RRGGBBAA
}

type Config struct {
	Device    Device     `yaml:"device"`
	Blend     string     `yaml:"blend,omitempty"` // loop default blend mode
	Renderers []Renderer `yaml:"renderers,omitempty"`
	Preview   Preview    `yaml:"preview,omitempty"`
	Strip     Strip      `yaml:"strip,omitempty"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
