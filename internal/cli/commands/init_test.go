package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrpipe/vrpipe/internal/config"
	"github.com/vrpipe/vrpipe/internal/state"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		wantErr   bool
		wantFiles []string
	}{
		{
			name:    "init empty directory",
			wantErr: false,
			wantFiles: []string{
				"vrpipe.yaml",
				"import",
				"output",
			},
		},
		{
			name: "init existing config",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "vrpipe.yaml"), []byte("existing"), 0o600)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs([]string{tmpDir})

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				_, statErr := os.Stat(filepath.Join(tmpDir, f))
				assert.NoError(t, statErr, "expected %s to exist", f)
			}
		})
	}
}

func TestInitSeedsPresentSources(t *testing.T) {
	tmpDir := t.TempDir()
	importDir := filepath.Join(tmpDir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(importDir, "ativos.csv"),
		[]byte("MATRICULA,Sindicato\n1001,SINDPD SP\n"), 0o644))

	cmd := NewInitCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{tmpDir})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "seeded")

	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(filepath.Join(tmpDir, ".vrpipe", "state.db")))
	defer store.Close()

	fp, err := store.GetFingerprint(config.SourceActiveEmployees)
	require.NoError(t, err)
	require.NotNil(t, fp)
	assert.Len(t, fp.Hash, 32)
}
