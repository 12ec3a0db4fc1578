package builder

import (
	"gopkg.in/yaml.v2"
)

const InstallationSchemaVersion = "1.6"

type ContentMigrations struct {
	Product                   string             `yaml:"product"`
	InstallationSchemaVersion string             `yaml:"installation_schema_version"`
	ToVersion                 string             `yaml:"to_version"`
	Migrations                []ContentMigration `yaml:"migrations"`
}

type ContentMigration struct {
	FromVersion string          `yaml:"from_version"`
	Rules       []MigrationRule `yaml:"rules"`
}

type MigrationRule struct {
	Type     string `yaml:"type"`
	Selector string `yaml:"selector"`
	To       string `yaml:"to"`
}

// BuildContentMigrations lets Ops Manager upgrade an installed product from
// any prior version straight to version.
func BuildContentMigrations(productName, version string, history []string) ([]byte, error) {
	migrations := ContentMigrations{
		Product:                   productName,
		InstallationSchemaVersion: InstallationSchemaVersion,
		ToVersion:                 version,
		Migrations:                make([]ContentMigration, 0, len(history)),
	}
	for _, prior := range history {
		migrations.Migrations = append(migrations.Migrations, ContentMigration{
			FromVersion: prior,
			Rules: []MigrationRule{
				{Type: "update", Selector: "product_version", To: version},
			},
		})
	}
	return yaml.Marshal(migrations)
}
