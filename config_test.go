package taskexecutor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taskexecutor "github.com/Swind/go-task-executor"
)

// TestConfigValidate tests configuration validation
// Given: configs covering every topology mode and its failure cases
// When: Validate is called
// Then: contradictions are reported with the matching sentinel error
func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		config  taskexecutor.Config
		wantErr error
	}{
		{
			name:   "default config is valid",
			config: taskexecutor.DefaultConfig(),
		},
		{
			name: "group count mode with explicit count",
			config: taskexecutor.Config{
				TopologyMode: taskexecutor.TopologyModeGroupCount,
				GroupCount:   4,
			},
		},
		{
			name: "group count mode without a count",
			config: taskexecutor.Config{
				TopologyMode: taskexecutor.TopologyModeGroupCount,
			},
			wantErr: taskexecutor.ErrInvalidArgument,
		},
		{
			name: "group count exceeds topology capacity",
			config: taskexecutor.Config{
				TopologyMode: taskexecutor.TopologyModeGroupCount,
				GroupCount:   1000,
			},
			wantErr: taskexecutor.ErrResourceExhausted,
		},
		{
			name: "physical cores with negative cap",
			config: taskexecutor.Config{
				TopologyMode:  taskexecutor.TopologyModePhysicalCores,
				MaxGroupCount: -1,
			},
			wantErr: taskexecutor.ErrInvalidArgument,
		},
		{
			name: "cache groups with zero cap is uncapped",
			config: taskexecutor.Config{
				TopologyMode: taskexecutor.TopologyModeUniqueCacheGroups,
			},
		},
		{
			name: "unknown topology mode",
			config: taskexecutor.Config{
				TopologyMode: "hyperthreads",
			},
			wantErr: taskexecutor.ErrInvalidArgument,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestCreateExecutor tests executor construction from a config
func TestCreateExecutor(t *testing.T) {
	executor, err := taskexecutor.CreateExecutor(taskexecutor.Config{
		TopologyMode: taskexecutor.TopologyModeGroupCount,
		GroupCount:   3,
	})
	require.NoError(t, err)
	defer executor.Shutdown()

	assert.Equal(t, 3, executor.WorkerCount())
	assert.True(t, executor.Stats().Running)
}

// TestCreateExecutor_InvalidConfig tests that construction refuses bad configs
func TestCreateExecutor_InvalidConfig(t *testing.T) {
	_, err := taskexecutor.CreateExecutor(taskexecutor.Config{
		TopologyMode: taskexecutor.TopologyModeGroupCount,
	})
	assert.ErrorIs(t, err, taskexecutor.ErrInvalidArgument)
}

// TestCreateExecutor_DerivedTopologies tests the machine-shaped modes
func TestCreateExecutor_DerivedTopologies(t *testing.T) {
	for _, mode := range []taskexecutor.TopologyMode{
		taskexecutor.TopologyModePhysicalCores,
		taskexecutor.TopologyModeUniqueCacheGroups,
	} {
		t.Run(string(mode), func(t *testing.T) {
			executor, err := taskexecutor.CreateExecutor(taskexecutor.Config{
				TopologyMode:  mode,
				MaxGroupCount: 2,
			})
			require.NoError(t, err)
			defer executor.Shutdown()

			count := executor.WorkerCount()
			assert.GreaterOrEqual(t, count, 1)
			assert.LessOrEqual(t, count, 2)
		})
	}
}
