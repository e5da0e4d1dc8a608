// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package archivelog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivaas-dev/archive/archive"
	"github.com/rivaas-dev/archive/archive/json"
	"github.com/rivaas-dev/archive/internal/archivelog"
)

type point struct {
	X int32
	Y int32
}

func (p *point) Serialize(c *archive.ObjectCursor) error {
	if err := c.KV(archive.Field("x", &p.X)); err != nil {
		return err
	}
	return c.KV(archive.Field("y", &p.Y))
}

// A Logger wired via archive.WithLogger receives the "archive: save
// begin"/"archive: save end" debug lines a real SaveObject call emits.
func TestLoggerReceivesSaveEvents(t *testing.T) {
	var buf bytes.Buffer
	logger, err := archivelog.New(
		archivelog.WithHandlerType(archivelog.TextHandler),
		archivelog.WithOutput(&buf),
		archivelog.WithLevel(archivelog.LevelDebug),
		archivelog.WithComponent("archive-test"),
	)
	require.NoError(t, err)
	defer logger.Close()

	in := point{X: 1, Y: 2}
	_, err = archive.SaveObjectBytes[point, json.Format](&in, archive.WithLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "archive: save begin")
	assert.Contains(t, out, "archive: save end")
	assert.Contains(t, out, "component=archive-test")
}

func TestNewRejectsUnknownHandler(t *testing.T) {
	_, err := archivelog.New(archivelog.WithHandlerType("bogus"))
	require.Error(t, err)
}

func TestSetLevelFiltersRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := archivelog.MustNew(
		archivelog.WithHandlerType(archivelog.JSONHandler),
		archivelog.WithOutput(&buf),
		archivelog.WithLevel(archivelog.LevelInfo),
	)
	defer logger.Close()

	logger.Debug("should not appear")
	logger.Info("should appear")
	assert.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "should appear")

	require.NoError(t, logger.SetLevel(archivelog.LevelDebug))
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestSamplingSkipsAfterInitialBurst(t *testing.T) {
	var buf bytes.Buffer
	logger := archivelog.MustNew(
		archivelog.WithHandlerType(archivelog.JSONHandler),
		archivelog.WithOutput(&buf),
		archivelog.WithLevel(archivelog.LevelInfo),
		archivelog.WithSampling(archivelog.SamplingConfig{Initial: 1, Thereafter: 1000}),
	)
	defer logger.Close()

	for i := 0; i < 5; i++ {
		logger.Info("tick")
	}
	lines := strings.Count(buf.String(), "\n")
	assert.Less(t, lines, 5)
}
