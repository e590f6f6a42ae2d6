package envstruct_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/aitrainer/internal/envstruct"
)

type serverConfig struct {
	Addr     string        `env:"ADDR" envDefault:"localhost:8081"`
	Debug    bool          `env:"DEBUG" envDefault:"false"`
	Workers  int           `env:"WORKERS" envDefault:"4"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"2s"`
	Untagged string
}

func envOf(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestPopulate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    serverConfig
		wantErr error
	}{
		{
			name: "defaults",
			env:  nil,
			want: serverConfig{Addr: "localhost:8081", Debug: false, Workers: 4, Timeout: 2 * time.Second, Untagged: ""},
		},
		{
			name: "overrides",
			env:  map[string]string{"ADDR": "localhost:0", "DEBUG": "true", "WORKERS": "16", "TIMEOUT": "30s"},
			want: serverConfig{Addr: "localhost:0", Debug: true, Workers: 16, Timeout: 30 * time.Second, Untagged: ""},
		},
		{
			name:    "bad int",
			env:     map[string]string{"WORKERS": "many"},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "bad duration",
			env:     map[string]string{"TIMEOUT": "soon"},
			wantErr: envstruct.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got serverConfig
			err := envstruct.Populate(&got, envOf(tt.env))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Populate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Populate() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Populate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPopulate_invalidTargets(t *testing.T) {
	noEnv := envOf(nil)
	required := struct {
		Key string `env:"REQUIRED_KEY"`
	}{}
	unsupported := struct {
		Ratio float64 `env:"RATIO" envDefault:"0.5"`
	}{}

	tests := []struct {
		name    string
		v       any
		wantErr error
	}{
		{name: "nil", v: nil, wantErr: envstruct.ErrInvalidValue},
		{name: "not a pointer", v: struct{}{}, wantErr: envstruct.ErrInvalidValue},
		{name: "missing without default", v: &required, wantErr: envstruct.ErrEnvNotSet},
		{name: "unsupported kind", v: &unsupported, wantErr: envstruct.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := envstruct.Populate(tt.v, noEnv); !errors.Is(err, tt.wantErr) {
				t.Errorf("Populate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
