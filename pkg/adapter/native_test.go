package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNativeAdapterPrefersImageInRAM(t *testing.T) {
	state := SystemState{Hosts: []HostView{
		{Name: "h1", CoresFree: 2, ImageInRAM: map[string]bool{}, ImageOnDisk: map[string]bool{}},
		{Name: "h2", CoresFree: 2, ImageInRAM: map[string]bool{"img-a": true}, ImageOnDisk: map[string]bool{}},
	}}
	inv := []InvocationView{{ID: "inv-1", ImageID: "img-a"}}

	p, err := NewNativeAdapter().Schedule(context.Background(), inv, state)
	assert.NoError(t, err)
	assert.Equal(t, []string{"inv-1"}, p.Start["h2"])
	assert.Empty(t, p.Copy["h2"])
	assert.Empty(t, p.Load["h2"])
}

func TestNativeAdapterSchedulesCopyAndLoadWhenImageAbsent(t *testing.T) {
	state := SystemState{Hosts: []HostView{
		{Name: "h1", CoresFree: 4, ImageInRAM: map[string]bool{}, ImageOnDisk: map[string]bool{}},
	}}
	inv := []InvocationView{{ID: "inv-1", ImageID: "img-a"}}

	p, err := NewNativeAdapter().Schedule(context.Background(), inv, state)
	assert.NoError(t, err)
	assert.Equal(t, []string{"img-a"}, p.Copy["h1"])
	assert.Equal(t, []string{"img-a"}, p.Load["h1"])
	assert.Equal(t, []string{"inv-1"}, p.Start["h1"])
}

func TestNativeAdapterSkipsInvocationWhenNoCoresFree(t *testing.T) {
	state := SystemState{Hosts: []HostView{
		{Name: "h1", CoresFree: 0, ImageInRAM: map[string]bool{}, ImageOnDisk: map[string]bool{}},
	}}
	inv := []InvocationView{{ID: "inv-1", ImageID: "img-a"}}

	p, err := NewNativeAdapter().Schedule(context.Background(), inv, state)
	assert.NoError(t, err)
	assert.Empty(t, p.Start)
}

func TestNativeAdapterOnDiskBeatsColdHost(t *testing.T) {
	state := SystemState{Hosts: []HostView{
		{Name: "h1", CoresFree: 4, ImageInRAM: map[string]bool{}, ImageOnDisk: map[string]bool{}},
		{Name: "h2", CoresFree: 4, ImageInRAM: map[string]bool{}, ImageOnDisk: map[string]bool{"img-a": true}},
	}}
	inv := []InvocationView{{ID: "inv-1", ImageID: "img-a"}}

	p, err := NewNativeAdapter().Schedule(context.Background(), inv, state)
	assert.NoError(t, err)
	assert.Equal(t, []string{"inv-1"}, p.Start["h2"])
	assert.Empty(t, p.Copy["h2"])
	assert.Equal(t, []string{"img-a"}, p.Load["h2"])
}
