package sketch

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		ok     bool
	}{
		{"zero tap timeout", func(c *Config) { c.TapTimeout = 0 }, false},
		{"negative slop", func(c *Config) { c.TouchSlop = -1 }, false},
		{"nan slop", func(c *Config) { c.TouchSlop = math.NaN() }, false},
		{"zero slop", func(c *Config) { c.TouchSlop = 0 }, true},
		{"zero pan timeout", func(c *Config) { c.PanConfirmTimeout = 0 }, false},
		{"fling range inverted", func(c *Config) { c.MaxFlingVelocity = 10 }, false},
		{"zero velocity window", func(c *Config) { c.VelocityWindow = 0 }, false},
		{"damping below one", func(c *Config) { c.Damping = 0.5 }, false},
		{"no damping", func(c *Config) { c.Damping = 1 }, true},
		{"zero animation", func(c *Config) { c.AnimationDuration = 0 }, false},
		{"zero deceleration", func(c *Config) { c.FlingDeceleration = 0 }, false},
		{"zero frame interval", func(c *Config) { c.FrameInterval = 0 }, false},
		{"30 fps", func(c *Config) { c.FrameInterval = time.Second / 30 }, true},
		{"min scale zero", func(c *Config) { c.MinScale = 0 }, true},
		{"min scale above one", func(c *Config) { c.MinScale = 1.5 }, false},
		{"min scale nan", func(c *Config) { c.MinScale = math.NaN() }, false},
		{"max scale below one", func(c *Config) { c.MaxScale = 0.9 }, false},
		{"max scale infinite", func(c *Config) { c.MaxScale = math.Inf(1) }, false},
		{"nil board", func(c *Config) { c.BoardColor = nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	o := defaultOptions()
	WithDispatcher(nil)(&o)
	if o.dispatch == nil {
		t.Fatal("WithDispatcher(nil) removed the dispatcher")
	}
	ran := false
	o.dispatch(func() { ran = true })
	if !ran {
		t.Error("default dispatcher did not run fn inline")
	}

	cfg := DefaultConfig()
	cfg.MaxScale = 3
	WithConfig(cfg)(&o)
	if o.config.MaxScale != 3 {
		t.Errorf("WithConfig not applied: MaxScale = %v", o.config.MaxScale)
	}

	e := NewEraser()
	WithBrush(e)(&o)
	if o.brush != e {
		t.Error("WithBrush not applied")
	}
}
