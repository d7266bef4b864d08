package flagx

import (
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "openpass.json", "-d", "postgres://localhost/openpass"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "openpass.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=prod.json", "-l", "debug"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=prod.json"},
		},
		{
			name:         "unknown flags and positionals dropped",
			args:         []string{"-k", "deadbeef", "--salt=ff", "import.csv"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{},
		},
		{
			name:         "allowed flag at end without value",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "dash-starting token is not taken as value",
			args:         []string{"-c", "-l"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "several allowed flags keep order",
			args:         []string{"-b", "photos", "-c", "openpass.json", "-g", "us-east-1"},
			allowedFlags: []string{"-c", "-b"},
			want:         []string{"-b", "photos", "-c", "openpass.json"},
		},
		{
			name:         "repeated flag preserved",
			args:         []string{"-c", "base.json", "-c", "override.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "base.json", "-c", "override.json"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short form", func(t *testing.T) {
		os.Args = []string{"openpass", "-c", "/etc/openpass/config.json"}
		assert.Equal(t, "/etc/openpass/config.json", JsonConfigFlags())
	})

	t.Run("long form", func(t *testing.T) {
		os.Args = []string{"openpass", "-config", "/etc/openpass/config.json"}
		assert.Equal(t, "/etc/openpass/config.json", JsonConfigFlags())
	})

	t.Run("absent", func(t *testing.T) {
		os.Args = []string{"openpass", "-d", "postgres://localhost/openpass"}
		assert.Empty(t, JsonConfigFlags())
	})

	t.Run("last one wins", func(t *testing.T) {
		os.Args = []string{"openpass", "-c", "one.json", "-config", "two.json"}
		assert.Equal(t, "two.json", JsonConfigFlags())
	})
}
