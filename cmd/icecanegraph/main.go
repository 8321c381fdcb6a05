/**
 * Copyright 2021 The IcecaneDB Authors. All rights reserved.
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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dr0pdb/icecanegraph/pkg/common"
	"github.com/dr0pdb/icecanegraph/pkg/scenario"
	log "github.com/sirupsen/logrus"
)

const (
	scenarioNested       = "nested"
	scenarioFailedCommit = "failed-commit"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the reproduction and returns the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("icecanegraph", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath = fs.String("config", "", "path of the yaml config file")
		workers    = fs.Int("workers", 0, "number of worker goroutines; overrides the config")
		isolation  = fs.String("isolation", "", "read-committed or snapshot; overrides the config")
		logLevel   = fs.String("loglevel", "", "the level of log; overrides the config")
		uids       = fs.String("uids", "a,b,c", "comma separated uids created by the workers")
		save       = fs.Bool("save", true, "save an unrelated entity in the outer txn after the first creation")
		child      = fs.Bool("child", true, "give the saved entity a child")
		which      = fs.String("scenario", scenarioNested, "nested or failed-commit")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log.SetOutput(stderr)
	log.Info("icecanegraphmain::main::run; starting")

	conf := common.NewDefaultGraphConfig()
	if *configPath != "" {
		if err := conf.LoadFromFile(*configPath); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}
	if *workers != 0 {
		conf.Workers = *workers
	}
	if *isolation != "" {
		conf.Isolation = *isolation
	}
	if *logLevel != "" {
		conf.LogLevel = *logLevel
	}
	if err := conf.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	level, _ := log.ParseLevel(conf.LogLevel)
	log.SetLevel(level)

	h, err := scenario.NewHarness(conf)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer h.Close()

	var report *scenario.Report
	switch *which {
	case scenarioNested:
		report, err = h.Run(context.Background(), scenario.Plan{UIDs: splitUIDs(*uids), Save: *save, SaveChild: *child})
	case scenarioFailedCommit:
		report, err = h.RunFailedCommit(context.Background())
	default:
		fmt.Fprintf(stderr, "error: unknown scenario %q\n", *which)
		return 2
	}

	if report != nil {
		fmt.Fprint(stdout, report.String())
	}
	if err != nil {
		fmt.Fprintf(stderr, "FAIL: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "PASS")
	return 0
}

func splitUIDs(s string) []string {
	var out []string
	for _, uid := range strings.Split(s, ",") {
		if uid = strings.TrimSpace(uid); uid != "" {
			out = append(out, uid)
		}
	}
	return out
}
