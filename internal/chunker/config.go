package chunker

const (
	UnitToken = "token"
	UnitChar  = "char"

	DefaultMaxUnit        = 8192
	DefaultMaxChunks      = 1000
	DefaultMinSectionSize = 100
	maxDefaultOverlap     = 256
)

// Config controls chunk sizes. MaxUnit and OverlapUnit are counted in tokens
// or runes depending on Unit.
type Config struct {
	MaxUnit           int    `yaml:"max_unit" json:"max_unit"`
	OverlapUnit       int    `yaml:"overlap_unit" json:"overlap_unit"`
	PreserveStructure bool   `yaml:"preserve_structure" json:"preserve_structure"`
	Unit              string `yaml:"unit" json:"unit"`
	MaxChunks         int    `yaml:"max_chunks" json:"max_chunks"`
	MinSectionSize    int    `yaml:"min_section_size" json:"min_section_size"`
}

// DefaultOverlap is a tenth of maxUnit, capped at 256.
func DefaultOverlap(maxUnit int) int {
	return min(maxUnit/10, maxDefaultOverlap)
}

// DefaultConfig returns the settings for an 8192-token embedding context.
func DefaultConfig() Config {
	return Config{
		MaxUnit:           DefaultMaxUnit,
		OverlapUnit:       DefaultOverlap(DefaultMaxUnit),
		PreserveStructure: true,
		Unit:              UnitToken,
		MaxChunks:         DefaultMaxChunks,
		MinSectionSize:    DefaultMinSectionSize,
	}
}

// Normalize fills zero values and clamps the overlap into [0, MaxUnit-1].
func (c Config) Normalize() Config {
	if c.MaxUnit <= 0 {
		c.MaxUnit = DefaultMaxUnit
	}
	if c.OverlapUnit < 0 {
		c.OverlapUnit = 0
	}
	if c.OverlapUnit >= c.MaxUnit {
		c.OverlapUnit = c.MaxUnit - 1
	}
	if c.Unit == "" {
		c.Unit = UnitToken
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = DefaultMaxChunks
	}
	if c.MinSectionSize < 0 {
		c.MinSectionSize = 0
	}
	return c
}
