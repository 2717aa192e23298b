/*
Copyright 2023 The Tundra Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// tdopt reads a serialized logical plan, runs the rule-based transformation
// engine over it, and prints the rewritten plan. It exists for debugging
// rewrites outside a running cluster.
package main

import (
	"os"

	"github.com/tundradb/tundra/go/cmd/tdopt/cli"
	"github.com/tundradb/tundra/go/td/log"
)

func main() {
	defer log.Flush()
	if err := cli.Main().Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
