package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoScript reads one line from stdin (the request) and ignores it,
// writing back a fixed placement response. This is enough to exercise
// the line-delimited JSON protocol without depending on a real
// external scheduler binary.
const echoScript = `read -r line
printf '{"placement":{"Start":{"h1":["inv-1"]}}}\n'
`

func TestSubprocessAdapterRoundTrips(t *testing.T) {
	ctx := context.Background()
	a, err := NewSubprocessAdapter(ctx, "/bin/sh", []string{"-c", echoScript}, time.Second)
	require.NoError(t, err)
	defer a.Close()

	p, err := a.Schedule(ctx, []InvocationView{{ID: "inv-1", ImageID: "img-a"}}, SystemState{
		Hosts: []HostView{{Name: "h1", CoresFree: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inv-1"}, p.Start["h1"])
}

func TestSubprocessAdapterTimesOutOnSilentProcess(t *testing.T) {
	ctx := context.Background()
	a, err := NewSubprocessAdapter(ctx, "/bin/sh", []string{"-c", "read -r line; sleep 5"}, 50*time.Millisecond)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Schedule(ctx, []InvocationView{{ID: "inv-1"}}, SystemState{})
	assert.Error(t, err)
}

func TestSubprocessAdapterSurfacesReportedError(t *testing.T) {
	ctx := context.Background()
	script := `read -r line
printf '{"error":"no feasible placement"}\n'
`
	a, err := NewSubprocessAdapter(ctx, "/bin/sh", []string{"-c", script}, time.Second)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Schedule(ctx, []InvocationView{{ID: "inv-1"}}, SystemState{})
	assert.Error(t, err)
}
