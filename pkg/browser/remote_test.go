package browser

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	keys    []string
	args    []map[string]any
	results map[string]any
	err     error
}

func (f *fakeCaller) Call(_ context.Context, key string, args map[string]any) (any, error) {
	f.keys = append(f.keys, key)
	f.args = append(f.args, args)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[key], nil
}

func TestRemoteEnvRoutesPrimitives(t *testing.T) {
	caller := &fakeCaller{results: map[string]any{
		"web_page_url": "http://shop.example/",
		"web_reward":   map[string]any{"reward": 1.0},
	}}
	env := NewRemoteEnv(context.Background(), caller, "web")

	require.NoError(t, env.StartTask("110"))
	require.NoError(t, env.Click("42"))
	require.NoError(t, env.Fill("42", "usb hub"))
	require.NoError(t, env.Press("Enter"))
	assert.Equal(t, "http://shop.example/", env.URL())
	assert.Equal(t, 1.0, env.Reward())
	require.NoError(t, env.Close())

	assert.Equal(t, []string{
		"web_start_task", "web_click", "web_fill", "web_keyboard_press",
		"web_page_url", "web_reward", "web_close",
	}, caller.keys)
	assert.Equal(t, map[string]any{"bid": "42", "value": "usb hub"}, caller.args[2])
}

func TestRemoteEnvPropagatesErrors(t *testing.T) {
	caller := &fakeCaller{err: errors.New("server gone")}
	env := NewRemoteEnv(context.Background(), caller, "web")

	assert.Error(t, env.Click("1"))
	assert.Zero(t, env.Reward(), "reward read failure degrades to zero")
	assert.Empty(t, env.URL())
}
