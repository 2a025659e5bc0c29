package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// LayoutConfig holds every tunable constant of the layout engine. It can be
// overlaid from YAML and hot-reloaded.
type LayoutConfig struct {
	Geometry    GeometryConfig    `yaml:"geometry" json:"geometry"`
	Text        TextConfig        `yaml:"text" json:"text"`
	Forces      ForceConfig       `yaml:"forces" json:"forces"`
	Simulation  SimulationConfig  `yaml:"simulation" json:"simulation"`
	Chronology  ChronologyConfig  `yaml:"chronology" json:"chronology"`
	Measurement MeasurementConfig `yaml:"measurement" json:"measurement"`
	Viewport    ViewportConfig    `yaml:"viewport" json:"viewport"`
}

// GeometryConfig sizes the node shapes, in pixels.
type GeometryConfig struct {
	PersonDiameter        float64 `yaml:"person_diameter" json:"person_diameter" validate:"gte=48,lte=96"`
	PersonDiameterCompact float64 `yaml:"person_diameter_compact" json:"person_diameter_compact" validate:"gte=48,lte=96"`
	OriginDiameter        float64 `yaml:"origin_diameter" json:"origin_diameter" validate:"gte=48,lte=96"`
	ChronoPersonDiameter  float64 `yaml:"chrono_person_diameter" json:"chrono_person_diameter" validate:"gt=0"`
	ThingSide             float64 `yaml:"thing_side" json:"thing_side" validate:"gt=0"`
	ThingSideCompact      float64 `yaml:"thing_side_compact" json:"thing_side_compact" validate:"gt=0"`
	CardWidth             float64 `yaml:"card_width" json:"card_width" validate:"gt=0"`
	CardHeight            float64 `yaml:"card_height" json:"card_height" validate:"gt=0"`
	CardHeightTextOnly    float64 `yaml:"card_height_text_only" json:"card_height_text_only" validate:"gt=0"`
	CollisionMargin       float64 `yaml:"collision_margin" json:"collision_margin" validate:"gte=8,lte=16"`
}

// TextConfig drives the character-count wrap estimate.
type TextConfig struct {
	AvgCharWidth float64 `yaml:"avg_char_width" json:"avg_char_width" validate:"gt=0"`
	MaxLines     int     `yaml:"max_lines" json:"max_lines" validate:"gte=0"`
	LineHeight   float64 `yaml:"line_height" json:"line_height" validate:"gt=0"`
	FontSize     float64 `yaml:"font_size" json:"font_size" validate:"gt=0"`
}

// ForceConfig parameterizes the free-form solver.
type ForceConfig struct {
	LinkDistance          float64 `yaml:"link_distance" json:"link_distance" validate:"gt=0"`
	LinkDistanceCompact   float64 `yaml:"link_distance_compact" json:"link_distance_compact" validate:"gt=0"`
	ChargeStrength        float64 `yaml:"charge_strength" json:"charge_strength" validate:"lt=0"`
	ChargeStrengthCompact float64 `yaml:"charge_strength_compact" json:"charge_strength_compact" validate:"lt=0"`
	ChargeDistanceMax     float64 `yaml:"charge_distance_max" json:"charge_distance_max" validate:"gt=0"`
	CenterStrength        float64 `yaml:"center_strength" json:"center_strength" validate:"gte=0,lte=1"`
	CollisionIterations   int     `yaml:"collision_iterations" json:"collision_iterations" validate:"gte=1,lte=10"`
	CollisionStrength     float64 `yaml:"collision_strength" json:"collision_strength" validate:"gt=0,lte=1"`
	ResidualCharge        float64 `yaml:"residual_charge" json:"residual_charge" validate:"lte=0"`
}

// SimulationConfig controls energy and damping.
type SimulationConfig struct {
	VelocityDecay   float64 `yaml:"velocity_decay" json:"velocity_decay" validate:"gte=0.75,lte=0.9"`
	AlphaMin        float64 `yaml:"alpha_min" json:"alpha_min" validate:"gt=0,lt=1"`
	AlphaDecayTicks int     `yaml:"alpha_decay_ticks" json:"alpha_decay_ticks" validate:"gte=10"`
	ReheatAlpha     float64 `yaml:"reheat_alpha" json:"reheat_alpha" validate:"gte=0.2,lte=0.5"`
	DragAlphaTarget float64 `yaml:"drag_alpha_target" json:"drag_alpha_target" validate:"gte=0,lte=1"`
	MeasureAlpha    float64 `yaml:"measure_alpha" json:"measure_alpha" validate:"gte=0,lte=0.5"`
	ModeSwitchAlpha float64 `yaml:"mode_switch_alpha" json:"mode_switch_alpha" validate:"gt=0,lte=1"`
	JitterRadius    float64 `yaml:"jitter_radius" json:"jitter_radius" validate:"gte=0"`
	Seed            int64   `yaml:"seed" json:"seed"`
}

// ChronologyConfig lays out the time axis and the people rows.
type ChronologyConfig struct {
	ItemSpacing  float64 `yaml:"item_spacing" json:"item_spacing" validate:"gt=0"`
	AxisGap      float64 `yaml:"axis_gap" json:"axis_gap" validate:"gte=0"`
	RowCapacity  int     `yaml:"row_capacity" json:"row_capacity" validate:"gte=1"`
	PersonRowGap float64 `yaml:"person_row_gap" json:"person_row_gap" validate:"gte=0"`
	PersonMargin float64 `yaml:"person_margin" json:"person_margin" validate:"gte=0"`
	Padding      float64 `yaml:"padding" json:"padding" validate:"gte=0"`
}

// MeasurementConfig tunes the card measurement loop.
type MeasurementConfig struct {
	Tolerance float64 `yaml:"tolerance" json:"tolerance" validate:"gte=0"`
}

// ViewportConfig bounds pan and zoom.
type ViewportConfig struct {
	MinScale       float64       `yaml:"min_scale" json:"min_scale" validate:"gt=0"`
	MaxScale       float64       `yaml:"max_scale" json:"max_scale" validate:"gtfield=MinScale"`
	VisibleMargin  float64       `yaml:"visible_margin" json:"visible_margin" validate:"gte=0"`
	KeyPanStep     float64       `yaml:"key_pan_step" json:"key_pan_step" validate:"gt=0"`
	KeyPanDuration time.Duration `yaml:"key_pan_duration" json:"key_pan_duration" validate:"gte=0"`
	CenterDuration time.Duration `yaml:"center_duration" json:"center_duration" validate:"gte=0"`
}

// DefaultLayoutConfig returns the default layout configuration
func DefaultLayoutConfig() *LayoutConfig {
	return &LayoutConfig{
		Geometry: GeometryConfig{
			PersonDiameter:        72,
			PersonDiameterCompact: 48,
			OriginDiameter:        96,
			ChronoPersonDiameter:  56,
			ThingSide:             64,
			ThingSideCompact:      48,
			CardWidth:             160,
			CardHeight:            220,
			CardHeightTextOnly:    120,
			CollisionMargin:       12,
		},
		Text: TextConfig{
			AvgCharWidth: 7,
			MaxLines:     3,
			LineHeight:   16,
			FontSize:     12,
		},
		Forces: ForceConfig{
			LinkDistance:          90,
			LinkDistanceCompact:   60,
			ChargeStrength:        -300,
			ChargeStrengthCompact: -150,
			ChargeDistanceMax:     800,
			CenterStrength:        1.0,
			CollisionIterations:   3,
			CollisionStrength:     1.0,
			ResidualCharge:        -5,
		},
		Simulation: SimulationConfig{
			VelocityDecay:   0.8,
			AlphaMin:        0.001,
			AlphaDecayTicks: 300,
			ReheatAlpha:     0.3,
			DragAlphaTarget: 0.3,
			MeasureAlpha:    0.1,
			ModeSwitchAlpha: 1.0,
			JitterRadius:    30,
			Seed:            1,
		},
		Chronology: ChronologyConfig{
			ItemSpacing:  110,
			AxisGap:      24,
			RowCapacity:  10,
			PersonRowGap: 40,
			PersonMargin: 16,
			Padding:      40,
		},
		Measurement: MeasurementConfig{
			Tolerance: 0.5,
		},
		Viewport: ViewportConfig{
			MinScale:       0.1,
			MaxScale:       4,
			VisibleMargin:  100,
			KeyPanStep:     100,
			KeyPanDuration: 250 * time.Millisecond,
			CenterDuration: 750 * time.Millisecond,
		},
	}
}

// Validate checks the configuration against its constraints.
func (c *LayoutConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid layout config: %w", err)
	}
	return nil
}

// Clone returns a deep copy safe to hand to another engine.
func (c *LayoutConfig) Clone() *LayoutConfig {
	cp := *c
	return &cp
}
