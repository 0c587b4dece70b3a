package spotify

// Track contains the catalog metadata the converter needs.
type Track struct {
	URI        string // spotify:track:<id>
	Name       string
	Artists    []string
	Album      string
	DurationMs int64
}
