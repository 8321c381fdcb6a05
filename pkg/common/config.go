/**
 * Copyright 2020 The IcecaneDB Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"fmt"
	"io/ioutil"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	// IsolationReadCommitted lets a txn see every write committed before each of its reads.
	IsolationReadCommitted = "read-committed"

	// IsolationSnapshot pins a txn to the writes committed before it began.
	IsolationSnapshot = "snapshot"
)

const (
	defaultWorkers        = 5
	defaultAwaitTimeout   = 10 * time.Second
	defaultSkipListHeight = 12
	maxSkipListHeight     = 18
)

// GraphConfig defines the configuration settings for an icecanegraph instance.
type GraphConfig struct {
	// Workers is the number of goroutines in the worker pool.
	Workers int `yaml:"workers"`

	// AwaitTimeout bounds how long a caller blocks on a single unit of work.
	// zero disables the timeout.
	AwaitTimeout time.Duration `yaml:"awaitTimeout"`

	// Isolation is one of IsolationReadCommitted or IsolationSnapshot.
	Isolation string `yaml:"isolation"`

	// SkipListHeight is the max level of the storage skiplist.
	SkipListHeight int32 `yaml:"skipListHeight"`

	LogLevel string `yaml:"logLevel"`
}

// NewDefaultGraphConfig returns a new default graph configuration.
func NewDefaultGraphConfig() *GraphConfig {
	return &GraphConfig{
		Workers:        defaultWorkers,
		AwaitTimeout:   defaultAwaitTimeout,
		Isolation:      IsolationReadCommitted,
		SkipListHeight: defaultSkipListHeight,
		LogLevel:       "info",
	}
}

// Validate validates a GraphConfig and returns an error if it's invalid.
func (conf *GraphConfig) Validate() error {
	if conf.Workers <= 0 {
		return fmt.Errorf("invalid worker count %d provided in config", conf.Workers)
	}
	if conf.AwaitTimeout < 0 {
		return fmt.Errorf("invalid await timeout %v provided in config", conf.AwaitTimeout)
	}
	if conf.Isolation != IsolationReadCommitted && conf.Isolation != IsolationSnapshot {
		return fmt.Errorf("invalid isolation %q provided in config", conf.Isolation)
	}
	if conf.SkipListHeight < 1 || conf.SkipListHeight > maxSkipListHeight {
		return fmt.Errorf("invalid skiplist height %d provided in config", conf.SkipListHeight)
	}
	if _, err := log.ParseLevel(conf.LogLevel); err != nil {
		return fmt.Errorf("invalid log level provided in config: %v", err)
	}
	return nil
}

// LoadFromFile loads the config from the file. It assumes that config already has the defaults.
// In the case of an error, it leaves the config untouched.
func (conf *GraphConfig) LoadFromFile(path string) error {
	log.Info(fmt.Sprintf("icecanegraph::config::LoadFromFile; loading config from file %s", path))
	data, err := ioutil.ReadFile(path)
	if err != nil {
		log.Error(fmt.Sprintf("icecanegraph::config::LoadFromFile; error reading config from file %s, error %s", path, err))
		return err
	}
	fconf := GraphConfig{}
	err = yaml.Unmarshal(data, &fconf)
	if err != nil {
		log.Error(fmt.Sprintf("icecanegraph::config::LoadFromFile; error unmarshalling config from file %s, error %s", path, err))
		return err
	}

	log.WithFields(log.Fields{"config": fconf}).Debug("icecanegraph::config::LoadFromFile; read contents from the file")

	// populate fields
	if fconf.Workers != 0 {
		conf.Workers = fconf.Workers
	}
	if fconf.AwaitTimeout != 0 {
		conf.AwaitTimeout = fconf.AwaitTimeout
	}
	if fconf.Isolation != "" {
		conf.Isolation = fconf.Isolation
	}
	if fconf.SkipListHeight != 0 {
		conf.SkipListHeight = fconf.SkipListHeight
	}
	if fconf.LogLevel != "" {
		conf.LogLevel = fconf.LogLevel
	}
	return nil
}
