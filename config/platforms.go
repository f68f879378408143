package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"stays_observer/models"
)

type PlatformEntry struct {
	Key                  string `yaml:"key"`
	models.PlatformImage `yaml:",inline"`
}

// PlatformCatalog maps channel names reported by the booking platform to
// display data. Entries are matched in file order.
type PlatformCatalog struct {
	Default   models.PlatformImage `yaml:"default"`
	Platforms []PlatformEntry      `yaml:"platforms"`
}

func DefaultPlatforms() *PlatformCatalog {
	return &PlatformCatalog{
		Default: models.PlatformImage{Name: "Outro", ImagePath: "/images/platforms/default.png", Alt: "Plataforma Desconhecida"},
		Platforms: []PlatformEntry{
			{Key: "API airbnb", PlatformImage: models.PlatformImage{Name: "Airbnb", ImagePath: "/images/platforms/airbnb.png", Alt: "Airbnb"}},
			{Key: "API booking.com", PlatformImage: models.PlatformImage{Name: "Booking.com", ImagePath: "/images/platforms/booking.svg", Alt: "Booking.com"}},
			{Key: "Website", PlatformImage: models.PlatformImage{Name: "Website", ImagePath: "/images/platforms/website.png", Alt: "Reserva pelo Site"}},
			{Key: "Direto", PlatformImage: models.PlatformImage{Name: "Direto", ImagePath: "/images/platforms/direct.png", Alt: "Reserva Direta"}},
			{Key: "API expedia", PlatformImage: models.PlatformImage{Name: "Expedia", ImagePath: "/images/platforms/expedia.png", Alt: "Expedia"}},
			{Key: "API vrbo", PlatformImage: models.PlatformImage{Name: "VRBO", ImagePath: "/images/platforms/vrbo.png", Alt: "VRBO"}},
		},
	}
}

// LoadPlatforms reads the catalog from path, falling back to the built-in
// table when the file does not exist.
func LoadPlatforms(path string) (*PlatformCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPlatforms(), nil
		}
		return nil, err
	}

	var cat PlatformCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cat.Default.Name == "" {
		cat.Default = DefaultPlatforms().Default
	}
	return &cat, nil
}

// Lookup tries an exact key match, then a case-insensitive match of any key
// contained in platform, then returns the default entry.
func (c *PlatformCatalog) Lookup(platform string) models.PlatformImage {
	for _, p := range c.Platforms {
		if p.Key == platform {
			return p.PlatformImage
		}
	}

	normalized := strings.ToLower(platform)
	for _, p := range c.Platforms {
		if p.Key != "" && strings.Contains(normalized, strings.ToLower(p.Key)) {
			return p.PlatformImage
		}
	}

	return c.Default
}
