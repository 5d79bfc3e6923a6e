package dcgan_go

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogReportSummary(t *testing.T) {
	lr := NewLogReport()
	_, err := lr.Summary(0, 0)
	assert.Error(t, err)

	lr.Observe(&Report{GenLoss: 1, DisLoss: 2})
	lr.Observe(&Report{GenLoss: 3, DisLoss: 4})
	assert.Equal(t, 2, lr.Pending())
	entry, err := lr.Summary(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, entry.GenLoss)
	assert.Equal(t, 3.0, entry.DisLoss)
	assert.Equal(t, 2, entry.Iteration)
	assert.Equal(t, 0, lr.Pending())

	lr.Observe(&Report{GenLoss: 0.5, DisLoss: 1.5})
	entry, err = lr.Summary(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.5, entry.GenLoss)
	assert.Len(t, lr.History(), 2)
}

func TestLogReportSaveLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "report")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	lr := NewLogReport()
	fname := filepath.Join(dir, "log.json")
	require.NoError(t, lr.Save(fname))
	history, err := LoadLog(fname)
	require.NoError(t, err)
	assert.Empty(t, history)

	for i := 1; i <= 3; i++ {
		lr.Observe(&Report{GenLoss: float32(i), DisLoss: float32(2 * i)})
		_, err := lr.Summary(0, i)
		require.NoError(t, err)
	}
	require.NoError(t, lr.Save(fname))
	content, err := ioutil.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"gen/loss"`)
	assert.Contains(t, string(content), `"dis/loss"`)

	history, err = LoadLog(fname)
	require.NoError(t, err)
	if diff := cmp.Diff(lr.History(), history, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("History mismatch (-want +got):\n%s", diff)
	}

	restored := NewLogReport()
	restored.Restore(history)
	assert.Len(t, restored.History(), 3)

	plotName := filepath.Join(dir, "loss.png")
	require.NoError(t, PlotLosses(history, plotName))
	info, err := os.Stat(plotName)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, PlotLosses(nil, plotName))
}
