// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cv-evaluator/pkg/types"
)

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(types.StoreConfig{WorkDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestOpenRequiresWorkDir(t *testing.T) {
	_, err := Open(types.StoreConfig{})
	assert.Error(t, err)
}

func TestOpenCreatesDatabase(t *testing.T) {
	_, dir := testSetup(t)
	assert.FileExists(t, filepath.Join(dir, dbFile))
}

func TestRunLifecycle(t *testing.T) {
	s, _ := testSetup(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx, "cv.pdf", "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cv.pdf", run.Document)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)
	assert.Empty(t, run.Parent)

	require.NoError(t, s.FinishRun(ctx, id, types.RatingHigh, nil))

	run, err = s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, run.Status)
	assert.Equal(t, "high", run.Overall)
	require.NotNil(t, run.FinishedAt)
	assert.Empty(t, run.Error)
}

func TestFinishRunFailed(t *testing.T) {
	s, _ := testSetup(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx, "cv.pdf", "")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, id, "", errors.New("llm unavailable")))

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "llm unavailable", run.Error)
	assert.Empty(t, run.Overall)
}

func TestFinishRunUnknown(t *testing.T) {
	s, _ := testSetup(t)
	err := s.FinishRun(context.Background(), "missing", types.RatingLow, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRunUnknown(t *testing.T) {
	s, _ := testSetup(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSnapshotMirrorsFile(t *testing.T) {
	s, dir := testSetup(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx, "cv.pdf", "")
	require.NoError(t, err)

	cv := types.Record{"name": "Yann LeCun", "publications": []any{}}
	require.NoError(t, s.SaveSnapshot(ctx, id, "cv_data", cv))

	raw, err := s.Snapshot(ctx, id, "cv_data")
	require.NoError(t, err)
	got, err := types.ParseRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, "Yann LeCun", got.String("name"))

	data, err := os.ReadFile(filepath.Join(dir, id, "cv_data.json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(data))
}

func TestSaveSnapshotStringMirrorsMarkdown(t *testing.T) {
	s, dir := testSetup(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx, "cv.pdf", "")
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, id, "summary", "# CV Evaluation Summary\n"))

	data, err := os.ReadFile(filepath.Join(dir, id, "summary.md"))
	require.NoError(t, err)
	assert.Equal(t, "# CV Evaluation Summary\n", string(data))

	raw, err := s.Snapshot(ctx, id, "summary")
	require.NoError(t, err)
	var text string
	require.NoError(t, json.Unmarshal(raw, &text))
	assert.Equal(t, "# CV Evaluation Summary\n", text)
}

func TestSaveSnapshotReplaces(t *testing.T) {
	s, _ := testSetup(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx, "cv.pdf", "")
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, id, "cv_data", types.Record{"name": "A"}))
	require.NoError(t, s.SaveSnapshot(ctx, id, "cv_data", types.Record{"name": "B"}))

	raw, err := s.Snapshot(ctx, id, "cv_data")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"B"}`, string(raw))

	stages, err := s.Stages(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"cv_data"}, stages)
}

func TestSaveSnapshotUnknownRun(t *testing.T) {
	s, _ := testSetup(t)
	err := s.SaveSnapshot(context.Background(), "missing", "cv_data", types.Record{})
	assert.Error(t, err, "foreign key must reject snapshots of unknown runs")
}

func TestSnapshotNotFound(t *testing.T) {
	s, _ := testSetup(t)
	ctx := context.Background()
	id, err := s.StartRun(ctx, "cv.pdf", "")
	require.NoError(t, err)

	_, err = s.Snapshot(ctx, id, "evaluation")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStagesInSaveOrder(t *testing.T) {
	s, _ := testSetup(t)
	ctx := context.Background()
	id, err := s.StartRun(ctx, "cv.pdf", "")
	require.NoError(t, err)

	for _, stage := range []string{"cv_data", "enriched_cv_data", "further_enriched_cv_data"} {
		require.NoError(t, s.SaveSnapshot(ctx, id, stage, types.Record{"stage": stage}))
	}
	stages, err := s.Stages(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"cv_data", "enriched_cv_data", "further_enriched_cv_data"}, stages)
}

func TestListRunsNewestFirst(t *testing.T) {
	s, _ := testSetup(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		id, err := s.StartRun(ctx, "cv.pdf", "")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStartRunRecordsParent(t *testing.T) {
	s, _ := testSetup(t)
	ctx := context.Background()

	parent, err := s.StartRun(ctx, "cv.pdf", "")
	require.NoError(t, err)
	child, err := s.StartRun(ctx, "cv.pdf", parent)
	require.NoError(t, err)

	run, err := s.GetRun(ctx, child)
	require.NoError(t, err)
	assert.Equal(t, parent, run.Parent)
}

func TestExport(t *testing.T) {
	s, _ := testSetup(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx, "cv.pdf", "")
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, id, "cv_data", types.Record{"name": "Yann LeCun"}))
	require.NoError(t, s.SaveSnapshot(ctx, id, "summary", "# Summary"))
	require.NoError(t, s.FinishRun(ctx, id, types.RatingMedium, nil))

	var js bytes.Buffer
	require.NoError(t, s.ExportJSON(ctx, id, &js))
	var exp Export
	require.NoError(t, json.Unmarshal(js.Bytes(), &exp))
	assert.Equal(t, id, exp.Run.ID)
	assert.Equal(t, "medium", exp.Run.Overall)
	assert.Equal(t, "# Summary", exp.Snapshots["summary"])
	assert.Equal(t, map[string]any{"name": "Yann LeCun"}, exp.Snapshots["cv_data"])

	var ym bytes.Buffer
	require.NoError(t, s.ExportYAML(ctx, id, &ym))
	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &decoded))
	assert.Contains(t, decoded, "run")
	assert.Contains(t, decoded, "snapshots")
}

func TestExportUnknownRun(t *testing.T) {
	s, _ := testSetup(t)
	var buf bytes.Buffer
	assert.ErrorIs(t, s.ExportJSON(context.Background(), "missing", &buf), ErrNotFound)
}
