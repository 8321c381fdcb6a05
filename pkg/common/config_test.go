package common

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	conf := NewDefaultGraphConfig()
	assert.Nil(t, conf.Validate(), "Unexpected error while validating default config")
	assert.Equal(t, 5, conf.Workers)
	assert.Equal(t, IsolationReadCommitted, conf.Isolation)
}

func TestValidateRejectsBadValues(t *testing.T) {
	conf := NewDefaultGraphConfig()
	conf.Workers = 0
	assert.NotNil(t, conf.Validate(), "expected error for zero workers")

	conf = NewDefaultGraphConfig()
	conf.Isolation = "serializable"
	assert.NotNil(t, conf.Validate(), "expected error for unsupported isolation")

	conf = NewDefaultGraphConfig()
	conf.SkipListHeight = 19
	assert.NotNil(t, conf.Validate(), "expected error for skiplist height above max")

	conf = NewDefaultGraphConfig()
	conf.LogLevel = "loud"
	assert.NotNil(t, conf.Validate(), "expected error for unknown log level")
}

func TestLoadFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "icecanegraph")
	require.Nil(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yaml")
	contents := "workers: 2\nawaitTimeout: 3s\nisolation: snapshot\n"
	require.Nil(t, ioutil.WriteFile(path, []byte(contents), 0644))

	conf := NewDefaultGraphConfig()
	err = conf.LoadFromFile(path)
	assert.Nil(t, err, "Unexpected error while loading config")
	assert.Equal(t, 2, conf.Workers)
	assert.Equal(t, 3*time.Second, conf.AwaitTimeout)
	assert.Equal(t, IsolationSnapshot, conf.Isolation)

	// untouched fields keep their defaults.
	assert.Equal(t, int32(defaultSkipListHeight), conf.SkipListHeight)
	assert.Equal(t, "info", conf.LogLevel)
}

func TestLoadFromMissingFileLeavesDefaults(t *testing.T) {
	conf := NewDefaultGraphConfig()
	err := conf.LoadFromFile("/nonexistent/icecanegraph.yaml")
	assert.NotNil(t, err)
	assert.Equal(t, NewDefaultGraphConfig(), conf)
}
