package cmds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/judge-api/internal/types"
)

func TestParseTestResult(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    types.JudgerTestResult
		wantErr bool
	}{
		{
			name: "status only",
			raw:  "1:AC",
			want: types.JudgerTestResult{Slug: "1", Status: types.TestCaseStatusAccepted},
		},
		{
			name: "time and memory",
			raw:  "big:TLE:2000:65536",
			want: types.JudgerTestResult{
				Slug:   "big",
				Status: types.TestCaseStatusTimeLimitExceeded,
				Time:   2000,
				Memory: 65536,
			},
		},
		{name: "unknown status", raw: "1:XX", wantErr: true},
		{name: "missing status", raw: "1", wantErr: true},
		{name: "bad time", raw: "1:AC:fast", wantErr: true},
		{name: "too many parts", raw: "1:AC:1:2:3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTestResult(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildResult(t *testing.T) {
	t.Run("Flags", func(t *testing.T) {
		got, err := buildResult(t.Context(), resultOptions{
			status: "OK",
			log:    "done",
			tests:  []string{"1:AC:3", "2:WA"},
			inline: true,
		})
		require.NoError(t, err)
		assert.Equal(t, types.ResultStatusOK, got.Status)
		assert.Equal(t, "done", got.Log)
		assert.Len(t, got.TestResults, 2)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		_, err := buildResult(t.Context(), resultOptions{status: "MAYBE", inline: true})
		assert.Error(t, err)
	})

	t.Run("BadTest", func(t *testing.T) {
		_, err := buildResult(t.Context(), resultOptions{status: "OK", tests: []string{"1:XX"}, inline: true})
		assert.Error(t, err)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "result.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`status: CE
log: "main.cpp:1: error"
`), 0o600))

		got, err := buildResult(t.Context(), resultOptions{file: path, status: "OK"})
		require.NoError(t, err)
		assert.Equal(t, types.ResultStatusCompilationError, got.Status)
		assert.Empty(t, got.TestResults)
	})

	t.Run("FileAndFlags", func(t *testing.T) {
		_, err := buildResult(t.Context(), resultOptions{file: "x.yaml", status: "IE", inline: true})
		assert.Error(t, err)
	})
}
