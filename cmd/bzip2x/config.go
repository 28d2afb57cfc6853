// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package main

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const envPrefix = "bzip2x"

// envConfig holds the defaults taken from the environment.
// Command-line flags take precedence over them.
type envConfig struct {
	Level       int `envconfig:"LEVEL" default:"9"`
	Concurrency int `envconfig:"CONCURRENCY"`
	Verbosity   int `envconfig:"VERBOSITY"`
}

func loadEnv() (envConfig, error) {
	var env envConfig
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return env, errors.Wrap(err, "invalid environment")
	}
	return env, nil
}
