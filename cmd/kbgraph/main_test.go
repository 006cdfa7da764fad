package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbgraph-backend/application/commands"
	"kbgraph-backend/application/queries"
)

type fakeBackend struct {
	got    commands.GenerateLinksCommand
	err    error
	closed bool
}

func (f *fakeBackend) GenerateLinks(_ context.Context, cmd commands.GenerateLinksCommand) (*commands.GenerateLinksResult, error) {
	f.got = cmd
	if f.err != nil {
		return nil, f.err
	}
	return &commands.GenerateLinksResult{Success: true, LinksCreated: 3, TotalEntries: 4}, nil
}

func (f *fakeBackend) GetGraphData(_ context.Context, q queries.GetGraphDataQuery) (*queries.GraphData, error) {
	return &queries.GraphData{
		Nodes: []queries.GraphNode{{ID: "A", Title: q.UserID}},
		Edges: []queries.GraphEdge{},
	}, nil
}

func run(t *testing.T, fake *fakeBackend, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (backend, func(), error) {
		return fake, func() { fake.closed = true }, nil
	}
	var out bytes.Buffer
	root := newRootCmd(open)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateCmd(t *testing.T) {
	fake := &fakeBackend{}
	out, err := run(t, fake, "generate", "--user", "user-1", "--max-links", "50", "--ordering", "strength")
	require.NoError(t, err)

	assert.Equal(t, "user-1", fake.got.UserID)
	require.NotNil(t, fake.got.MaxLinks)
	assert.Equal(t, 50, *fake.got.MaxLinks)
	assert.Nil(t, fake.got.MinSimilarity, "unset flags keep the configured default")
	assert.Equal(t, "strength", fake.got.Ordering)
	assert.True(t, fake.closed)

	var result commands.GenerateLinksResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.LinksCreated)
}

func TestGenerateCmd_Errors(t *testing.T) {
	_, err := run(t, &fakeBackend{}, "generate")
	assert.Error(t, err, "--user is required")

	_, err = run(t, &fakeBackend{err: errors.New("boom")}, "generate", "-u", "user-1")
	assert.EqualError(t, err, "boom")
}

func TestGraphCmd(t *testing.T) {
	out, err := run(t, &fakeBackend{}, "graph", "-u", "user-1")
	require.NoError(t, err)

	var graph queries.GraphData
	require.NoError(t, json.Unmarshal([]byte(out), &graph))
	require.Len(t, graph.Nodes, 1)
	assert.Equal(t, "user-1", graph.Nodes[0].Title)
}
