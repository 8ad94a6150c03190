package component

// GlyphComponent is a drawable character
type GlyphComponent struct {
	Rune  rune       `json:"rune"`
	Type  GlyphType  `json:"type"`
	Level GlyphLevel `json:"level"`
}

// GlyphType selects the glyph palette
type GlyphType int

const (
	GlyphGreen GlyphType = iota
	GlyphBlue
	GlyphRed
	GlyphGold
)

// GlyphLevel is brightness, dark to bright
type GlyphLevel int

const (
	GlyphDark GlyphLevel = iota
	GlyphNormal
	GlyphBright
)
